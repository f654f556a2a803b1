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

package message

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

type testBlock struct {
	Description string   `json:"description"`
	Columns     []string `json:"columns" required:"true"`
}

func (b *testBlock) InitMessage(js interface{}) error {
	return Init(b, js)
}

type testEndpoint struct {
	Template   string                 `json:"endpoint" required:"true"`
	Paging     string                 `json:"paging" default:"none" choices:"none,cursor,heuristic"`
	MaxPages   int                    `default:"5"` // json key is "MaxPages"
	Strict     bool                   `default:"true"`
	Ratio      float64                `default:"0.5"`
	PageSize   *int                   `default:"100"`
	Blocks     map[string]*testBlock  `json:"return_data"`
	Entities   []string               `json:"global_entities"`
	Defaults   map[string]interface{} `json:"defaults"`
	Ignored    int                    `json:"-"`
	unexported int
}

func (e *testEndpoint) InitMessage(js interface{}) error {
	return Init(e, js)
}

type badChoice struct {
	Choice string `choices:"foo,bar"` // no default
}

func (b *badChoice) InitMessage(js interface{}) error {
	return Init(b, js)
}

func TestMessage(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_message")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("Init() works", t, func() {
		Convey("with required fields only", func() {
			var e testEndpoint
			So(e.InitMessage(testutil.JSON(`{"endpoint": "/engines"}`)), ShouldBeNil)
			So(e.Template, ShouldEqual, "/engines")
			So(e.Paging, ShouldEqual, "none")
			So(e.MaxPages, ShouldEqual, 5)
			So(e.Strict, ShouldBeTrue)
			So(e.Ratio, ShouldEqual, 0.5)
			So(*e.PageSize, ShouldEqual, 100)
			So(len(e.Blocks), ShouldEqual, 0)
			So(e.Defaults, ShouldBeNil)
		})

		Convey("with nested messages and raw values", func() {
			var e testEndpoint
			So(e.InitMessage(testutil.JSON(`{
        "endpoint": "/history/engines/{engine}/markets/{market}/securities",
        "paging": "cursor",
        "PageSize": null,
        "Strict": false,
        "global_entities": ["engine", "market"],
        "defaults": {"limit": 100, "iss.reverse": "true", "nothing": null},
        "return_data": {
          "history": {"description": "Trading history", "columns": ["BOARDID", "TRADEDATE"]},
          "history.cursor": {"columns": ["INDEX", "TOTAL", "PAGESIZE"]}
        }
      }`)), ShouldBeNil)
			So(e.Paging, ShouldEqual, "cursor")
			So(e.PageSize, ShouldBeNil)
			So(e.Strict, ShouldBeFalse)
			So(e.Entities, ShouldResemble, []string{"engine", "market"})
			So(e.Defaults, ShouldResemble, map[string]interface{}{
				"limit":       100.0,
				"iss.reverse": "true",
				"nothing":     nil,
			})
			So(len(e.Blocks), ShouldEqual, 2)
			So(e.Blocks["history"], ShouldResemble, &testBlock{
				Description: "Trading history",
				Columns:     []string{"BOARDID", "TRADEDATE"},
			})
			So(e.Blocks["history.cursor"].Description, ShouldEqual, "")
			So(e.unexported, ShouldEqual, 0)
		})

		Convey("with missing fields in a nested message", func() {
			var e testEndpoint
			err := e.InitMessage(testutil.JSON(`{
        "endpoint": "/engines",
        "return_data": {"engines": {"description": "no columns"}}}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing required fields: columns")
		})

		Convey("with ignored fields", func() {
			var e testEndpoint
			err := e.InitMessage(testutil.JSON(`{"endpoint": "/e", "Ignored": 5}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring,
				"unsupported fields for testEndpoint: Ignored")
		})

		Convey("with unexported fields", func() {
			var e testEndpoint
			err := e.InitMessage(testutil.JSON(`{"endpoint": "/e", "unexported": 5}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring,
				"unsupported fields for testEndpoint: unexported")
		})

		Convey("with incorrect choice", func() {
			var e testEndpoint
			err := e.InitMessage(testutil.JSON(`{"endpoint": "/e", "paging": "random"}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring,
				"value for Paging is not in its choice list: 'random'")
		})

		Convey("with incorrect default choice", func() {
			var b badChoice
			err := b.InitMessage(testutil.JSON(`{}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring,
				"error setting Go zero value for Choice")
			So(err.Error(), ShouldContainSubstring,
				"value for Choice is not in its choice list: ''")
		})
	})

	Convey("FromJSON and FromFile work", t, func() {
		Convey("from bytes", func() {
			var e testEndpoint
			So(FromJSON(&e, []byte(`{"endpoint": "/turnovers"}`)), ShouldBeNil)
			So(e.Template, ShouldEqual, "/turnovers")
		})

		Convey("from malformed bytes", func() {
			var e testEndpoint
			So(FromJSON(&e, []byte(`{"endpoint":`)), ShouldNotBeNil)
		})

		Convey("from a file", func() {
			fileName := filepath.Join(tmpdir, "endpoint.json")
			So(testutil.WriteFile(fileName, `{"endpoint": "/index"}`), ShouldBeNil)
			var e testEndpoint
			So(FromFile(&e, fileName), ShouldBeNil)
			So(e.Template, ShouldEqual, "/index")
		})

		Convey("from a missing file", func() {
			var e testEndpoint
			err := FromFile(&e, filepath.Join(tmpdir, "missing.json"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "failed to read")
		})
	})

	Convey("StringIn works", t, func() {
		So(StringIn("cursor", "none", "cursor", "heuristic"), ShouldBeTrue)
		So(StringIn("random", "none", "cursor"), ShouldBeFalse)
	})
}
