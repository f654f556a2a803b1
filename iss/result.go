// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package iss

import (
	"github.com/stockparfait/moex/table"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// RawBlock is a named data block of an ISS response in the compact format.
type RawBlock struct {
	Columns []string  `json:"columns"`
	Data    [][]Value `json:"data"`
}

// Table is the data of a single block, possibly collected from several pages.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Value
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	return columnIndex(t.Columns, name)
}

// Render the table for printing.
func (t *Table) Render() *table.Table {
	res := table.NewTable(t.Columns...)
	for _, r := range t.Rows {
		res.AddRow(table.Cells(r))
	}
	return res
}

// Result of a request. When the response has exactly one block, it is in
// Table and Tables is nil; otherwise Tables holds all the blocks by name.
type Result struct {
	Table   *Table
	Tables  map[string]*Table
	Partial bool // the request limit was reached before all the pages were read
	Calls   int  // the number of HTTP requests made
}

// NewResult converts the blocks into tables. Rows are kept in their order.
func NewResult(blocks map[string]*RawBlock) *Result {
	tables := make(map[string]*Table, len(blocks))
	for name, b := range blocks {
		tables[name] = &Table{Name: name, Columns: b.Columns, Rows: b.Data}
	}
	if len(tables) == 1 {
		for _, t := range tables {
			return &Result{Table: t}
		}
	}
	return &Result{Tables: tables}
}

// Names of the result's tables, sorted.
func (r *Result) Names() []string {
	if r.Table != nil {
		return []string{r.Table.Name}
	}
	names := maps.Keys(r.Tables)
	slices.Sort(names)
	return names
}

// Get the named table regardless of the shape of the result.
func (r *Result) Get(name string) (*Table, bool) {
	if r.Table != nil {
		if r.Table.Name != name {
			return nil, false
		}
		return r.Table, true
	}
	t, ok := r.Tables[name]
	return t, ok
}
