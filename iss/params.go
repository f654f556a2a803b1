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
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ColumnsPrefix of an argument selecting the columns of a block, as in
// "COLUMNS_history".
const ColumnsPrefix = "COLUMNS_"

// globalParams are sent with every request and override everything else.
var globalParams = map[string]Value{
	"iss.meta": "off",
	"iss.json": "compact",
}

// CanonicalName rewrites an argument name which cannot be used as a Go or
// shell identifier into the parameter name: "_from" becomes "from", "P_market"
// becomes "market" (a parameter shadowed by a path entity), and "iss__only"
// becomes "iss.only". The second value is false when no rule applies.
func CanonicalName(raw string) (string, bool) {
	switch {
	case strings.HasPrefix(raw, "_"):
		return raw[1:], true
	case strings.HasPrefix(raw, "P_"):
		return raw[2:], true
	case strings.Contains(raw, "__"):
		return strings.ReplaceAll(raw, "__", "."), true
	}
	return raw, false
}

// Call is a validated request ready to be sent.
type Call struct {
	Endpoint *Endpoint
	Path     string           // URL path with path entities, relative to the base URL
	Params   map[string]Value // canonical query parameters
}

// Values of the query string. Lists are comma-joined.
func (c *Call) Values() url.Values {
	return valuesOf(c.Params)
}

func valuesOf(params map[string]Value) url.Values {
	v := make(url.Values, len(params))
	for k, x := range params {
		v.Set(k, formatValue(x))
	}
	return v
}

// formatValue converts a canonical value to its query string form.
func formatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ",")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	if n, ok := asInt(v); ok {
		return strconv.Itoa(n)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice {
		s := make([]string, rv.Len())
		for i := range s {
			s[i] = formatValue(rv.Index(i).Interface())
		}
		return strings.Join(s, ",")
	}
	return fmt.Sprint(v)
}

// Assemble validates the arguments and builds the call of the endpoint in env.
// Every argument must be consumed: a path entity, a parameter (possibly under
// a rewritten name, see CanonicalName) or a column selection
// "COLUMNS_<block>". The args map is not modified.
//
// The blocks, if any, restrict the response to the named blocks, and
// marketData requests the current market data ("iss.data=on").
func Assemble(env *Env, args map[string]Value, blocks []string, marketData bool) (*Call, error) {
	e := env.Endpoint
	rest := maps.Clone(args)
	if rest == nil {
		rest = map[string]Value{}
	}
	path, err := resolvePath(e, rest)
	if err != nil {
		return nil, err
	}

	params := make(map[string]Value, len(e.Defaults)+len(rest)+len(globalParams))
	for k, v := range e.Defaults {
		params[k] = v
	}
	keys := maps.Keys(rest)
	slices.Sort(keys)
	for _, raw := range keys {
		name := raw
		if !e.Accepts(raw) {
			var rewritten bool
			if name, rewritten = CanonicalName(raw); !rewritten {
				continue
			}
			if !e.Accepts(name) {
				return nil, newError(ErrUnknownParameter,
					"'%s' (as '%s') is not a parameter of endpoint %s", raw, name, e.ID)
			}
		}
		v, err := CheckParam(env, name, rest[raw])
		if err != nil {
			return nil, err
		}
		params[name] = v
		delete(rest, raw)
	}

	for _, raw := range keys {
		if !strings.HasPrefix(raw, ColumnsPrefix) {
			continue
		}
		v, ok := rest[raw]
		if !ok {
			continue
		}
		block := strings.TrimPrefix(raw, ColumnsPrefix)
		if !e.HasBlock(block) {
			return nil, newError(ErrUnknownParameter,
				"%s: endpoint %s has no block '%s'", raw, e.ID, block)
		}
		cols, ok := asStrings(v)
		if _, isString := v.(string); !ok || isString {
			return nil, newError(ErrInvalidValue,
				"%s: expected a list of column names, got %v", raw, v)
		}
		params[block+".columns"] = cols
		delete(rest, raw)
	}

	if len(blocks) > 0 {
		for _, b := range blocks {
			if !e.HasBlock(b) {
				return nil, newError(ErrInvalidValue,
					"endpoint %s has no block '%s'; available blocks: %s",
					e.ID, b, strings.Join(blockNames(e), ", "))
			}
		}
		params["iss.only"] = slices.Clone(blocks)
	}

	if len(rest) > 0 {
		left := maps.Keys(rest)
		slices.Sort(left)
		return nil, newError(ErrUnknownParameter,
			"not parameters of endpoint %s: %s", e.ID, strings.Join(left, ", "))
	}

	if marketData {
		params["iss.data"] = "on"
	}
	for k, v := range globalParams {
		params[k] = v
	}
	return &Call{Endpoint: e, Path: path, Params: params}, nil
}

// resolvePath substitutes path entities into the endpoint template, removing
// them from args.
func resolvePath(e *Endpoint, args map[string]Value) (string, error) {
	path := e.Template
	for _, name := range e.PathEntities {
		v, ok := args[name]
		if !ok || v == nil {
			return "", newError(ErrMissingPathParameter,
				"endpoint %s requires '%s'", e.ID, name)
		}
		s, ok := asToken(v)
		if !ok || s == "" {
			return "", newError(ErrInvalidValue,
				"path entity '%s' must be a non-empty string or integer, got %v",
				name, v)
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(s))
		delete(args, name)
	}
	return path + ".json", nil
}

func blockNames(e *Endpoint) []string {
	names := maps.Keys(e.Blocks)
	slices.Sort(names)
	return names
}
