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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

const marketsJSON = `{"markets": {"columns": ["id", "NAME", "title"], "data": [
  [1, "index", "Индексы фондового рынка"],
  [5, "shares", "Рынок акций"]]}}`

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_moex_iss")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("with a query", func() {
			flags, err := parseFlags([]string{
				"-conf", "path/to/config.toml", "-log-level", "warning",
				"-endpoint", "65", "-arg", "engine=stock", "-arg", "securities=SBER",
				"-arg", "securities=GAZP", "-blocks", "history,history.cursor",
				"-market-data", "-no-reference", "-csv"})
			So(err, ShouldBeNil)
			So(flags.Config, ShouldEqual, "path/to/config.toml")
			So(flags.LogLevel, ShouldEqual, logging.Warning)
			So(flags.Endpoint, ShouldEqual, "65")
			So(flags.Args, ShouldResemble, argsFlag{
				"engine":     {"stock"},
				"securities": {"SBER", "GAZP"},
			})
			So(flags.Args.String(), ShouldEqual, "engine=stock securities=GAZP securities=SBER")
			So(flags.Blocks, ShouldResemble, []string{"history", "history.cursor"})
			So(flags.MarketData, ShouldBeTrue)
			So(flags.NoReference, ShouldBeTrue)
			So(flags.CSV, ShouldBeTrue)
		})

		Convey("with a description", func() {
			flags, err := parseFlags([]string{"-describe", "5", "-full"})
			So(err, ShouldBeNil)
			So(flags.Describe, ShouldEqual, "5")
			So(flags.Full, ShouldBeTrue)
			So(flags.LogLevel, ShouldEqual, logging.Info)
		})

		Convey("requires exactly one action", func() {
			_, err := parseFlags([]string{"-list", "-describe", "5"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{})
			So(err, ShouldNotBeNil)
		})

		Convey("rejects a malformed argument", func() {
			So(argsFlag{}.Set("engine"), ShouldNotBeNil)
			So(argsFlag{}.Set("=stock"), ShouldNotBeNil)
			So(argsFlag{}.Set("q=a=b"), ShouldBeNil)
		})
	})

	Convey("parseConfig", t, func() {
		Convey("without a file", func() {
			c, err := parseConfig("")
			So(err, ShouldBeNil)
			So(c, ShouldResemble, &Config{})
		})

		Convey("with a file", func() {
			fileName := filepath.Join(tmpdir, "config.toml")
			So(testutil.WriteFile(fileName, `url = "http://localhost/iss"
catalog = "catalog.json"
`), ShouldBeNil)
			c, err := parseConfig(fileName)
			So(err, ShouldBeNil)
			So(c, ShouldResemble, &Config{
				URL:       "http://localhost/iss",
				Catalog:   "catalog.json",
				Reference: "remote",
			})
		})

		Convey("with a bad reference mode", func() {
			fileName := filepath.Join(tmpdir, "bad.toml")
			So(testutil.WriteFile(fileName, `reference = "local"`), ShouldBeNil)
			_, err := parseConfig(fileName)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "'remote' or 'none'")
		})

		Convey("with a missing file", func() {
			_, err := parseConfig(filepath.Join(tmpdir, "missing.toml"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("printData works", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		server.ResponseBody = []string{"{}"}
		ctx := fetch.UseClient(context.Background(), server.Client())
		url := server.URL() + "/iss"

		Convey("list", func() {
			flags, err := parseFlags([]string{"-list"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "5\tSearch securities\n13\t")
		})

		Convey("describe", func() {
			flags, err := parseFlags([]string{"-describe", "65", "-full"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "Path entities: engine, market, security\n")
			So(buf.String(), ShouldContainSubstring, "following history.cursor")
		})

		Convey("describe an unknown endpoint", func() {
			flags, err := parseFlags([]string{"-describe", "99999"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldNotBeNil)
		})

		Convey("a single table without reference data", func() {
			server.ResponseBody = []string{marketsJSON}
			flags, err := parseFlags([]string{"-url", url, "-no-reference",
				"-endpoint", "42", "-arg", "engine=stock", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/iss/engines/stock/markets.json")
			So("\n"+buf.String(), ShouldEqual, `
id,NAME,title
1,index,Индексы фондового рынка
5,shares,Рынок акций
`)
		})

		Convey("several tables as text with selected columns", func() {
			server.ResponseBody = []string{`{
        "description": {"columns": ["name", "value"], "data": [["SECID", "SBER"]]},
        "boards": {"columns": ["secid", "boardid"], "data": [["SBER", "TQBR"]]}}`}
			flags, err := parseFlags([]string{"-url", url, "-no-reference",
				"-endpoint", "13", "-arg", "security=SBER",
				"-arg", "COLUMNS_boards=secid,boardid"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/iss/securities/SBER.json")
			So(server.RequestQuery.Get("boards.columns"), ShouldEqual, "secid,boardid")
			So("\n"+buf.String(), ShouldEqual, `
boards:
secid | boardid
----- | -------
 SBER |    TQBR

description:
 name | value
----- | -----
SECID |  SBER
`)
		})

		Convey("a query validated by the reference data", func() {
			index := `{` + strings.Join([]string{
				`"engines": {"columns": ["name", "title"], "data": [["stock", "Фондовый рынок"]]}`,
				`"markets": {"columns": ["market_name"], "data": []}`,
				`"boards": {"columns": ["boardid"], "data": []}`,
				`"boardgroups": {"columns": ["name"], "data": []}`,
				`"durations": {"columns": ["interval"], "data": []}`,
				`"securitytypes": {"columns": ["security_type_name"], "data": []}`,
				`"securitygroups": {"columns": ["name"], "data": []}`,
				`"securitycollections": {"columns": ["name"], "data": []}`,
			}, ", ") + `}`
			indices := `{"indices": {"columns": ["indexid"], "data": [["IMOEX"]]}}`
			confName := filepath.Join(tmpdir, "remote.toml")
			So(testutil.WriteFile(confName, `url = "`+url+`"`), ShouldBeNil)

			Convey("accepts a known engine", func() {
				server.ResponseBody = []string{index, indices, marketsJSON}
				flags, err := parseFlags([]string{"-conf", confName,
					"-endpoint", "42", "-arg", "engine=stock", "-csv"})
				So(err, ShouldBeNil)
				var buf bytes.Buffer
				So(printData(ctx, flags, &buf), ShouldBeNil)
				So(buf.String(), ShouldStartWith, "id,NAME,title\n")
			})

			Convey("rejects an unknown trade engine", func() {
				server.ResponseBody = []string{index, indices}
				flags, err := parseFlags([]string{"-conf", confName,
					"-endpoint", "100", "-arg", "trade_engine=nope"})
				So(err, ShouldBeNil)
				var buf bytes.Buffer
				err = printData(ctx, flags, &buf)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "'nope' is not one of engines")
			})
		})
	})
}
