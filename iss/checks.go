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
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Env is the request-scoped environment of parameter checks.
type Env struct {
	Endpoint  *Endpoint  // the endpoint being called
	Reference *Reference // may be nil, then reference membership is not checked
}

// Check validates a parameter value and returns its canonical form. A Check
// applied to its own output returns the same value.
type Check interface {
	Check(env *Env, v Value) (Value, error)
}

// MultiValueParams are the parameters which may take a list of values. The
// list is sent comma-separated.
var MultiValueParams = map[string]bool{
	"securities": true,
	"boardid":    true,
	"assets":     true,
	"sectypes":   true,
	"tickers":    true,
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// checks maps each parameter name to its validation.
var checks = map[string]Check{
	"q":         searchCheck{},
	"assetcode": searchCheck{},
	"tickers":   listCheck{item: searchCheck{}},

	"engine":              refCheck{entity: "engines"},
	"trade_engine":        refCheck{entity: "engines"},
	"securitygroups":      refCheck{entity: "securitygroups"},
	"security_collection": refCheck{entity: "securitycollections"},
	"interval":            refCheck{entity: "durations"},
	"tradingsession":      refCheck{entity: RefSessions},
	"series_type":         refCheck{entity: RefOptionSeriesTypes, upper: true},

	"market":        enumCheck{values: []string{"EQ", "FI", "MX"}, upper: true},
	"group_by":      enumCheck{values: []string{"group", "type"}},
	"asset_type":    enumCheck{values: []string{"S", "F"}, upper: true},
	"sort_order":    enumCheck{values: []string{"asc", "desc"}},
	"type":          enumCheck{values: []string{"daily", "monthly"}},
	"status":        enumCheck{values: []string{"traded", "nottraded", "all"}},
	"yielddatetype": enumCheck{values: []string{"MBS", "MATDATE", "OFFERDATE"}, upper: true},
	"option_type":   enumCheck{values: []string{"C", "P"}, upper: true},

	"limit":     intCheck{min: 1, max: 5000},
	"start":     intCheck{min: 0, max: math.MaxInt},
	"numtrades": intCheck{min: 0, max: math.MaxInt},
	"first":     intCheck{min: 0, max: math.MaxInt},
	"tradeno":   intCheck{min: 0, max: math.MaxInt},
	"year":      intCheck{min: 1990, max: 2100},
	"month":     intCheck{min: 1, max: 12},

	"date":            dateCheck{},
	"from":            dateCheck{},
	"till":            dateCheck{},
	"expiration_date": dateCheck{},
	"time":            timeCheck{},

	"is_trading":       flagCheck{},
	"is_traded":        flagCheck{},
	"hide_inactive":    flagCheck{},
	"latest":           flagCheck{},
	"only_actual":      flagCheck{},
	"interim":          flagCheck{},
	"primary_board":    flagCheck{},
	"index":            flagCheck{},
	"previous_session": flagCheck{},
	"leaders":          flagCheck{},
	"nearest":          flagCheck{},
	"reversed":         flagCheck{},
	"recno":            flagCheck{},
	"next_trade":       flagCheck{},
	"iss.reverse":      wordFlagCheck{},

	"securities":  listCheck{max: 10},
	"assets":      listCheck{max: 5},
	"boardid":     listCheck{entity: "boards"},
	"sectypes":    listCheck{max: 5, item: sectypeCheck{}},
	"sort_column": sortColumnCheck{},
}

// LookupCheck returns the validation of the parameter.
func LookupCheck(name string) (Check, error) {
	c, ok := checks[name]
	if !ok {
		return nil, newError(ErrValidationRegistry,
			"parameter '%s' has no registered validation", name)
	}
	return c, nil
}

// CheckParam validates a single parameter value and returns its canonical form.
func CheckParam(env *Env, name string, v Value) (Value, error) {
	if isList(v) && !MultiValueParams[name] {
		return nil, newError(ErrInvalidValue,
			"parameter '%s' takes a single value, got %v", name, v)
	}
	c, err := LookupCheck(name)
	if err != nil {
		return nil, err
	}
	res, err := c.Check(env, v)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return nil, &Error{Kind: e.Kind, Msg: name + ": " + e.Msg, Err: e.Err}
		}
		return nil, err
	}
	return res, nil
}

// verifyChecks makes sure every parameter of the endpoint can be validated.
func verifyChecks(e *Endpoint) error {
	names := make([]string, 0, len(e.Params))
	for n := range e.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := LookupCheck(n); err != nil {
			return err
		}
	}
	return nil
}

type flagCheck struct{}

func (flagCheck) Check(_ *Env, v Value) (Value, error) {
	b, ok := asBool(v)
	if !ok {
		return nil, newError(ErrInvalidValue, "expected a boolean or 0/1, got %v", v)
	}
	if b {
		return 1, nil
	}
	return 0, nil
}

type wordFlagCheck struct{}

func (wordFlagCheck) Check(_ *Env, v Value) (Value, error) {
	b, ok := asBool(v)
	if !ok {
		return nil, newError(ErrInvalidValue, "expected true or false, got %v", v)
	}
	return strconv.FormatBool(b), nil
}

type intCheck struct {
	min, max int
}

func (c intCheck) Check(_ *Env, v Value) (Value, error) {
	n, ok := asInt(v)
	if ok && n >= c.min && n <= c.max {
		return n, nil
	}
	if c.max == math.MaxInt {
		return nil, newError(ErrInvalidValue, "expected an integer >= %d, got %v",
			c.min, v)
	}
	return nil, newError(ErrInvalidValue, "expected an integer in [%d, %d], got %v",
		c.min, c.max, v)
}

type dateCheck struct{}

func (dateCheck) Check(_ *Env, v Value) (Value, error) {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateLayout), nil
	}
	s, ok := v.(string)
	if ok {
		if t, err := time.Parse(dateLayout, strings.TrimSpace(s)); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	return nil, newError(ErrInvalidValue, "expected a date as YYYY-MM-DD, got %v", v)
}

type timeCheck struct{}

func (timeCheck) Check(_ *Env, v Value) (Value, error) {
	if t, ok := v.(time.Time); ok {
		return t.Format(timeLayout), nil
	}
	s, ok := v.(string)
	if ok {
		if t, err := time.Parse(timeLayout, strings.TrimSpace(s)); err == nil {
			return t.Format(timeLayout), nil
		}
	}
	return nil, newError(ErrInvalidValue, "expected a time as HH:MM:SS, got %v", v)
}

// enumCheck accepts one of the fixed values, case-insensitively. The values
// must all be in the canonical case.
type enumCheck struct {
	values []string
	upper  bool
}

func (c enumCheck) Check(_ *Env, v Value) (Value, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if c.upper {
			s = strings.ToUpper(s)
		} else {
			s = strings.ToLower(s)
		}
		for _, x := range c.values {
			if s == x {
				return s, nil
			}
		}
	}
	return nil, newError(ErrInvalidValue, "expected one of %s, got %v",
		strings.Join(c.values, ", "), v)
}

// refCheck accepts a token of the reference set. When the set is not loaded,
// any token is accepted.
type refCheck struct {
	entity string
	upper  bool
}

func (c refCheck) Check(env *Env, v Value) (Value, error) {
	t, ok := asToken(v)
	if !ok || t == "" {
		return nil, newError(ErrInvalidValue, "expected a token of %s, got %v",
			c.entity, v)
	}
	if c.upper {
		t = strings.ToUpper(t)
	}
	if env == nil || env.Reference == nil {
		return t, nil
	}
	s, err := env.Reference.Set(c.entity)
	if err != nil {
		return t, nil
	}
	if !s.Has(t) {
		return nil, newError(ErrInvalidValue, "'%s' is not one of %s: %s",
			t, c.entity, strings.Join(s.Tokens(), ", "))
	}
	return t, nil
}

// listCheck accepts a list of up to max tokens (unlimited for max == 0), each
// in the reference set of the entity, if any, and passing the item check, if
// any. A single string is split on commas.
type listCheck struct {
	max    int
	entity string
	item   Check
}

func (c listCheck) Check(env *Env, v Value) (Value, error) {
	items, ok := asStrings(v)
	if !ok || len(items) == 0 {
		return nil, newError(ErrInvalidValue, "expected a non-empty list, got %v", v)
	}
	if c.max > 0 && len(items) > c.max {
		return nil, newError(ErrInvalidValue, "expected at most %d items, got %d",
			c.max, len(items))
	}
	res := make([]string, len(items))
	for i, it := range items {
		if c.entity != "" {
			x, err := refCheck{entity: c.entity}.Check(env, it)
			if err != nil {
				return nil, err
			}
			it = x.(string)
		}
		if c.item != nil {
			x, err := c.item.Check(env, it)
			if err != nil {
				return nil, err
			}
			it = formatValue(x)
		}
		res[i] = it
	}
	return res, nil
}

// searchCheck accepts a search string where every word has at least 3
// characters.
type searchCheck struct{}

func (searchCheck) Check(_ *Env, v Value) (Value, error) {
	s, ok := asToken(v)
	if !ok {
		return nil, newError(ErrInvalidValue, "expected a search string, got %v", v)
	}
	words := strings.Fields(s)
	for _, w := range words {
		if utf8.RuneCountInString(w) < 3 {
			return nil, newError(ErrInvalidValue,
				"every search word must have at least 3 characters: '%s'", w)
		}
	}
	return strings.Join(words, " "), nil
}

// sectypeCheck accepts a security type code. Single-character codes must be
// known; longer ones are derivative asset codes and pass through.
type sectypeCheck struct{}

func (sectypeCheck) Check(env *Env, v Value) (Value, error) {
	t, ok := asToken(v)
	if !ok || t == "" {
		return nil, newError(ErrInvalidValue, "expected a security type, got %v", v)
	}
	if utf8.RuneCountInString(t) > 1 {
		return t, nil
	}
	return refCheck{entity: RefSecurityTypeCodes, upper: true}.Check(env, t)
}

// sortColumnCheck accepts a column of one of the endpoint's blocks.
type sortColumnCheck struct{}

func (sortColumnCheck) Check(env *Env, v Value) (Value, error) {
	s, ok := v.(string)
	if !ok {
		return nil, newError(ErrInvalidValue, "expected a column name, got %v", v)
	}
	s = strings.TrimSpace(s)
	if env == nil || env.Endpoint == nil || !env.Endpoint.HasColumn(s) {
		return nil, newError(ErrInvalidValue, "'%s' is not a column of the endpoint", s)
	}
	return s, nil
}

// isList whether v is a slice, an array or a set.
func isList(v Value) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

func asBool(v Value) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
		return false, false
	}
	n, ok := asInt(v)
	if !ok || (n != 0 && n != 1) {
		return false, false
	}
	return n == 1, true
}

func asInt(v Value) (int, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > math.MaxInt32 {
			return 0, false
		}
		return int(x), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	}
	return 0, false
}

// asToken converts strings and integers to a trimmed string.
func asToken(v Value) (string, bool) {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), true
	}
	if _, ok := v.(bool); ok {
		return "", false
	}
	if n, ok := asInt(v); ok {
		return strconv.Itoa(n), true
	}
	return "", false
}

// asStrings converts a comma-separated string, a slice or an array of tokens,
// or a set of strings (a map with string keys) to a list of strings.
func asStrings(v Value) ([]string, bool) {
	if s, ok := v.(string); ok {
		var res []string
		for _, x := range strings.Split(s, ",") {
			if x = strings.TrimSpace(x); x != "" {
				res = append(res, x)
			}
		}
		return res, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		res := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			t, ok := asToken(rv.Index(i).Interface())
			if !ok {
				return nil, false
			}
			res[i] = t
		}
		return res, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		res := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			res = append(res, k.String())
		}
		sort.Strings(res)
		return res, true
	}
	return nil, false
}
