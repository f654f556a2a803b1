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
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// WriteList prints the ID and the description of every endpoint, one per
// line, in numerical order of IDs.
func (c *Catalog) WriteList(w io.Writer) error {
	for _, id := range c.IDs() {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", id, c.endpoints[id].Description); err != nil {
			return errors.Annotate(err, "failed to write the list")
		}
	}
	return nil
}

// Describe prints the documentation of the endpoint. The template and the FAQ
// link are printed only when full is true.
func (c *Catalog) Describe(w io.Writer, id string, full bool) error {
	e, err := c.Lookup(id)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", e.ID, e.Description)
	if full {
		fmt.Fprintf(&b, "Template: %s\n", e.Template)
	}
	if len(e.PathEntities) > 0 {
		fmt.Fprintf(&b, "Path entities: %s\n", strings.Join(e.PathEntities, ", "))
	}

	b.WriteString("Blocks:\n")
	for _, name := range blockNames(e) {
		bl := e.Blocks[name]
		fmt.Fprintf(&b, "  %s", name)
		if bl.Description != "" {
			fmt.Fprintf(&b, ": %s", bl.Description)
		}
		b.WriteString("\n")
		if full && len(bl.Columns) > 0 {
			fmt.Fprintf(&b, "    columns: %s\n", strings.Join(bl.Columns, ", "))
		}
	}

	if len(e.Params) > 0 {
		b.WriteString("Parameters:\n")
		names := maps.Keys(e.Params)
		slices.Sort(names)
		for _, name := range names {
			p := e.Params[name]
			fmt.Fprintf(&b, "  %s", name)
			if p.Description != "" {
				fmt.Fprintf(&b, ": %s", p.Description)
			}
			if p.Default != nil {
				fmt.Fprintf(&b, " [default: %s]", formatValue(p.Default))
			}
			if v, ok := e.Defaults[name]; ok {
				fmt.Fprintf(&b, " [sent: %s]", formatValue(v))
			}
			b.WriteString("\n")
		}
	}

	switch e.Paging {
	case PagingCursor:
		fmt.Fprintf(&b, "Paging: all pages are read following %s\n", e.Cursor)
	case PagingHeuristic:
		b.WriteString("Paging: all pages are read until they stop changing\n")
	}
	if e.PageSizeParam != "" {
		fmt.Fprintf(&b, "Page size parameter: %s\n", e.PageSizeParam)
	}
	if full && e.FAQ != "" {
		fmt.Fprintf(&b, "FAQ: %s\n", e.FAQ)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Annotate(err, "failed to write the description")
	}
	return nil
}
