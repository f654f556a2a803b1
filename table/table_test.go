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

package table

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("FormatCell works", t, func() {
		So(FormatCell(nil), ShouldEqual, "")
		So(FormatCell("SBER"), ShouldEqual, "SBER")
		So(FormatCell(301.5), ShouldEqual, "301.5")
		So(FormatCell(1e6), ShouldEqual, "1000000")
		So(FormatCell(42), ShouldEqual, "42")
		So(FormatCell(true), ShouldEqual, "TRUE")
		So(FormatCell(false), ShouldEqual, "FALSE")
		So(FormatCell([]string{"a"}), ShouldEqual, "[a]")
	})

	Convey("Table methods work", t, func() {
		t := NewTable("SECID", "CLOSE")
		headless := NewTable()

		So(t.Header, ShouldResemble, []string{"SECID", "CLOSE"})
		t.AddRow(Cells{"SBER", 301.5}, Cells{"GAZP", 160})
		headless.AddRow(Cells{"SBER", 301.5}, Cells{"GAZP", 160})

		Convey("AddRow worked", func() {
			So(len(t.Rows), ShouldEqual, 2)
			So(len(headless.Rows), ShouldEqual, 2)
		})

		Convey("WriteCSV", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(t.WriteCSV(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
SECID,CLOSE
SBER,301.5
GAZP,160
`)
			})

			Convey("Default Params, headless", func() {
				var buf bytes.Buffer
				So(headless.WriteCSV(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
SBER,301.5
GAZP,160
`)
			})

			Convey("Limited rows, no header", func() {
				var buf bytes.Buffer
				So(t.WriteCSV(&buf, Params{Rows: 1, NoHeader: true}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
SBER,301.5
`)
			})
		})

		Convey("WriteText", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(t.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
SECID | CLOSE
----- | -----
 SBER | 301.5
 GAZP |   160
`)
			})

			Convey("Default Params, headless", func() {
				var buf bytes.Buffer
				So(headless.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
SBER | 301.5
GAZP |   160
`)
			})

			Convey("Limited rows and width, no header", func() {
				var buf bytes.Buffer
				So(t.WriteText(&buf, Params{Rows: 1, NoHeader: true, MaxColWidth: 4}), ShouldBeNil)
				So("\n"+buf.String(), ShouldResemble, `
SBER | 30..
`)
			})

			Convey("Cyrillic text is aligned by runes", func() {
				ru := NewTable("NAME", "ID")
				ru.AddRow(Cells{"Фондовый", "stock"})
				var buf bytes.Buffer
				So(ru.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
    NAME |    ID
-------- | -----
Фондовый | stock
`)
			})
		})
	})
}
