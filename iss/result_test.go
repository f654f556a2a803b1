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
	"bytes"
	"testing"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/moex/table"

	. "github.com/smartystreets/goconvey/convey"
)

func TestResult(t *testing.T) {
	t.Parallel()

	history := &RawBlock{
		Columns: []string{"SECID", "CLOSE"},
		Data:    [][]Value{{"SBER", 301.5}, {"GAZP", 160.0}},
	}
	cursor := &RawBlock{
		Columns: []string{"INDEX", "TOTAL", "PAGESIZE"},
		Data:    [][]Value{{0.0, 2.0, 100.0}},
	}

	Convey("A single block is returned directly", t, func() {
		res := NewResult(map[string]*RawBlock{"history": history})
		So(res.Tables, ShouldBeNil)
		So(res.Table, ShouldResemble, &Table{
			Name:    "history",
			Columns: []string{"SECID", "CLOSE"},
			Rows:    [][]Value{{"SBER", 301.5}, {"GAZP", 160.0}},
		})
		So(res.Names(), ShouldResemble, []string{"history"})
		tb, ok := res.Get("history")
		So(ok, ShouldBeTrue)
		So(tb.Column("CLOSE"), ShouldEqual, 1)
		So(tb.Column("OPEN"), ShouldEqual, -1)
		_, ok = res.Get("other")
		So(ok, ShouldBeFalse)
	})

	Convey("Several blocks are returned by name", t, func() {
		res := NewResult(map[string]*RawBlock{"history": history, "history.cursor": cursor})
		So(res.Table, ShouldBeNil)
		So(res.Names(), ShouldResemble, []string{"history", "history.cursor"})
		tb, ok := res.Get("history.cursor")
		So(ok, ShouldBeTrue)
		So(tb.Rows, ShouldResemble, [][]Value{{0.0, 2.0, 100.0}})
	})

	Convey("No blocks give an empty set of tables", t, func() {
		res := NewResult(map[string]*RawBlock{})
		So(res.Table, ShouldBeNil)
		So(len(res.Tables), ShouldEqual, 0)
		So(len(res.Names()), ShouldEqual, 0)
	})

	Convey("Render works", t, func() {
		tb := NewResult(map[string]*RawBlock{"history": history}).Table
		var buf bytes.Buffer
		So(tb.Render().WriteCSV(&buf, table.Params{}), ShouldBeNil)
		So("\n"+buf.String(), ShouldEqual, `
SECID,CLOSE
SBER,301.5
GAZP,160
`)
	})
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	c := testCatalog()

	Convey("WriteList works", t, func() {
		var buf bytes.Buffer
		So(c.WriteList(&buf), ShouldBeNil)
		So(buf.String(), ShouldEqual,
			"2\tHistory of a market\n3\tSecurities and trades\n10\tBoards of a market\n")
	})

	Convey("Describe works", t, func() {
		Convey("in full", func() {
			var buf bytes.Buffer
			So(c.Describe(&buf, "2", true), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
2: History of a market
Template: /history/engines/{engine}/markets/{market}/securities
Path entities: engine, market
Blocks:
  history: Trading results
    columns: SECID, TRADEDATE, CLOSE
  history.cursor
    columns: INDEX, TOTAL, PAGESIZE
Parameters:
  date: Trading day
  iss.reverse
  limit [default: 100] [sent: 100]
  market: Index market group
  securities
  sort_column
  start [default: 0]
Paging: all pages are read following history.cursor
Page size parameter: limit
FAQ: https://iss.moex.com/iss/reference/2
`)
		})

		Convey("briefly", func() {
			var buf bytes.Buffer
			So(c.Describe(&buf, "10", false), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
10: Boards of a market
Path entities: engine, market
Blocks:
  boards
Parameters:
  is_traded: Only traded boards
`)
		})

		Convey("heuristic paging", func() {
			var buf bytes.Buffer
			So(c.Describe(&buf, "3", false), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "until they stop changing")
		})

		Convey("unknown endpoint", func() {
			var buf bytes.Buffer
			err := c.Describe(&buf, "404", false)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(buf.Len(), ShouldEqual, 0)
		})
	})

	Convey("The default catalog describes every endpoint", t, func() {
		dc, err := DefaultCatalog()
		So(err, ShouldBeNil)
		for _, id := range dc.IDs() {
			var buf bytes.Buffer
			So(dc.Describe(&buf, id, true), ShouldBeNil)
			So(buf.String(), ShouldStartWith, id+": ")
		}
	})
}
