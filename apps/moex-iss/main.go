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
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/moex/iss"
	"github.com/stockparfait/moex/table"

	toml "github.com/pelletier/go-toml/v2"
)

// argsFlag collects repeated -arg name=value flags. A repeated name makes a
// list value.
type argsFlag map[string][]string

var _ flag.Value = argsFlag{}

func (a argsFlag) String() string {
	var kv []string
	for k, vs := range a {
		for _, v := range vs {
			kv = append(kv, k+"="+v)
		}
	}
	sort.Strings(kv)
	return strings.Join(kv, " ")
}

func (a argsFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return errors.Reason("expected name=value, got '%s'", s)
	}
	a[k] = append(a[k], v)
	return nil
}

type Flags struct {
	Config   string // TOML config file; optional
	URL      string // overrides the config
	LogLevel logging.Level
	// Exactly one of list, describe or endpoint must be present.
	List        bool
	Describe    string // endpoint ID to describe
	Endpoint    string // endpoint ID to query
	Full        bool   // describe everything, including columns
	Args        argsFlag
	Blocks      []string
	MarketData  bool
	NoReference bool // skip downloading the reference data
	CSV         bool // print CSV; default: text
}

func parseFlags(args []string) (*Flags, error) {
	flags := Flags{Args: make(argsFlag)}
	var blocks string
	fs := flag.NewFlagSet("moex-iss", flag.ExitOnError)
	fs.StringVar(&flags.Config, "conf", "", "TOML config file")
	fs.StringVar(&flags.URL, "url", "", "ISS base URL; default: "+iss.URL)
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.BoolVar(&flags.List, "list", false, "list all endpoints")
	fs.StringVar(&flags.Describe, "describe", "", "endpoint ID to describe")
	fs.BoolVar(&flags.Full, "full", false, "describe the endpoint in full")
	fs.StringVar(&flags.Endpoint, "endpoint", "", "endpoint ID to query")
	fs.Var(flags.Args, "arg",
		"argument name=value, may be repeated; e.g. -arg engine=stock -arg securities=SBER")
	fs.StringVar(&blocks, "blocks", "", "comma-separated blocks to return")
	fs.BoolVar(&flags.MarketData, "market-data", false, "request current market data")
	fs.BoolVar(&flags.NoReference, "no-reference", false,
		"do not download the reference data for validating arguments")
	fs.BoolVar(&flags.CSV, "csv", false, "print tables in CSV format; default: text")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if blocks != "" {
		flags.Blocks = strings.Split(blocks, ",")
	}
	kinds := 0
	if flags.List {
		kinds++
	}
	if flags.Describe != "" {
		kinds++
	}
	if flags.Endpoint != "" {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.Reason("expected exactly one of -list, -describe or -endpoint")
	}
	return &flags, nil
}

type Config struct {
	URL       string `toml:"url"`       // ISS base URL
	Catalog   string `toml:"catalog"`   // endpoint catalog JSON; default: built-in
	Reference string `toml:"reference"` // "remote" (default) or "none"
}

func parseConfig(filePath string) (*Config, error) {
	var c Config
	if filePath == "" {
		return &c, nil
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	switch c.Reference {
	case "":
		c.Reference = "remote"
	case "remote", "none":
	default:
		return nil, errors.Reason("reference must be 'remote' or 'none', got '%s'",
			c.Reference)
	}
	return &c, nil
}

func loadCatalog(config *Config) (*iss.Catalog, error) {
	if config.Catalog != "" {
		return iss.LoadCatalog(config.Catalog)
	}
	return iss.DefaultCatalog()
}

func writeTable(w io.Writer, t *table.Table, csv bool) error {
	if csv {
		if err := t.WriteCSV(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := t.WriteText(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func query(ctx context.Context, flags *Flags, config *Config, catalog *iss.Catalog) (*iss.Result, error) {
	var ref *iss.Reference
	if config.Reference != "none" && !flags.NoReference {
		var err error
		if ref, err = iss.FetchReference(iss.UseClient(ctx, catalog, nil)); err != nil {
			return nil, errors.Annotate(err, "failed to load reference data")
		}
	}
	ctx = iss.UseClient(ctx, catalog, ref)

	q := iss.NewQuery(flags.Endpoint)
	for name, values := range flags.Args {
		switch {
		case strings.HasPrefix(name, iss.ColumnsPrefix):
			q = q.Set(name, strings.Split(strings.Join(values, ","), ","))
		case len(values) == 1:
			q = q.Set(name, values[0])
		default:
			q = q.Set(name, values)
		}
	}
	if len(flags.Blocks) > 0 {
		q = q.Blocks(flags.Blocks...)
	}
	if flags.MarketData {
		q = q.MarketData()
	}
	res, err := q.Read(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to query endpoint %s", flags.Endpoint)
	}
	if res.Partial {
		logging.Warningf(ctx, "printing partial data after %d requests", res.Calls)
	}
	return res, nil
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	if flags.URL != "" {
		config.URL = flags.URL
	}
	if config.URL != "" {
		iss.URL = config.URL
	}
	catalog, err := loadCatalog(config)
	if err != nil {
		return err
	}
	switch {
	case flags.List:
		return catalog.WriteList(w)
	case flags.Describe != "":
		return catalog.Describe(w, flags.Describe, flags.Full)
	}

	res, err := query(ctx, flags, config, catalog)
	if err != nil {
		return err
	}
	names := res.Names()
	for i, name := range names {
		t, _ := res.Get(name)
		if len(names) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", name)
		}
		if err := writeTable(w, t.Render(), flags.CSV); err != nil {
			return errors.Annotate(err, "failed to print %s", name)
		}
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := printData(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
