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
	"context"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ReferenceSet is the set of valid tokens of one entity kind, such as engine
// names or board IDs, with an optional description of each token.
type ReferenceSet struct {
	Name   string
	tokens map[string]string // token -> description
}

// NewReferenceSet creates a set with the given tokens and no descriptions.
func NewReferenceSet(name string, tokens ...string) *ReferenceSet {
	s := &ReferenceSet{Name: name, tokens: make(map[string]string)}
	for _, t := range tokens {
		s.Add(t, "")
	}
	return s
}

// Add a token to the set. It is intended only for building the set; the set
// must not be modified after it's added to a Reference.
func (s *ReferenceSet) Add(token, description string) {
	s.tokens[token] = description
}

// Has checks membership of the token.
func (s *ReferenceSet) Has(token string) bool {
	_, ok := s.tokens[token]
	return ok
}

// Description of the token, if it's in the set.
func (s *ReferenceSet) Description(token string) (string, bool) {
	d, ok := s.tokens[token]
	return d, ok
}

// Tokens in lexicographic order.
func (s *ReferenceSet) Tokens() []string {
	ts := maps.Keys(s.tokens)
	slices.Sort(ts)
	return ts
}

// Len is the number of tokens in the set.
func (s *ReferenceSet) Len() int { return len(s.tokens) }

// Reference is the collection of reference sets keyed by entity name. It is
// read-only once created and is safe for concurrent use.
type Reference struct {
	sets map[string]*ReferenceSet
}

// Names of the sets always present in a Reference.
const (
	RefSessions          = "sessions"
	RefSecurityTypeCodes = "sectypes"
	RefOptionSeriesTypes = "option_series_types"
)

// staticSets are the reference sets not served by the exchange's dictionaries.
func staticSets() []*ReferenceSet {
	sessions := NewReferenceSet(RefSessions)
	sessions.Add("0", "morning session")
	sessions.Add("1", "main session")
	sessions.Add("2", "evening session")
	sessions.Add("3", "all sessions")

	sectypes := NewReferenceSet(RefSecurityTypeCodes)
	for _, t := range [][2]string{
		{"1", "common share"},
		{"2", "preferred share"},
		{"3", "federal government bond"},
		{"4", "regional government bond"},
		{"5", "central bank bond"},
		{"6", "corporate bond"},
		{"7", "international organization bond"},
		{"8", "exchange bond"},
		{"9", "mutual fund unit"},
		{"A", "exchange-traded fund"},
		{"B", "depositary receipt"},
		{"C", "municipal bond"},
		{"D", "mortgage participation certificate"},
		{"E", "clearing certificate"},
		{"F", "foreign share"},
		{"G", "foreign bond"},
		{"J", "structured bond"},
	} {
		sectypes.Add(t[0], t[1])
	}

	series := NewReferenceSet(RefOptionSeriesTypes)
	series.Add("W", "weekly")
	series.Add("M", "monthly")
	series.Add("Q", "quarterly")
	return []*ReferenceSet{sessions, sectypes, series}
}

// NewReference creates a Reference with the given sets in addition to the
// static ones. A given set replaces a static set of the same name.
func NewReference(sets ...*ReferenceSet) *Reference {
	r := &Reference{sets: make(map[string]*ReferenceSet)}
	for _, s := range staticSets() {
		r.sets[s.Name] = s
	}
	for _, s := range sets {
		r.sets[s.Name] = s
	}
	return r
}

// Set returns the reference set of the entity.
func (r *Reference) Set(entity string) (*ReferenceSet, error) {
	s, ok := r.sets[entity]
	if !ok {
		return nil, newError(ErrNotFound, "no reference data for '%s'", entity)
	}
	return s, nil
}

// Describe a token of the entity.
func (r *Reference) Describe(entity, token string) (string, error) {
	s, err := r.Set(entity)
	if err != nil {
		return "", err
	}
	d, ok := s.Description(token)
	if !ok {
		return "", newError(ErrNotFound, "'%s' is not one of %s", token, entity)
	}
	return d, nil
}

// Entities with reference sets, sorted.
func (r *Reference) Entities() []string {
	es := maps.Keys(r.sets)
	slices.Sort(es)
	return es
}

// refIndex tells which columns of a dictionary block are the token and its
// description.
type refIndex struct {
	block string // the block in the response
	name  string // the reference set name
	key   string
	title string
}

// indexRefs are the dictionaries of "/index".
var indexRefs = []refIndex{
	{"engines", "engines", "name", "title"},
	{"markets", "markets", "market_name", "market_title"},
	{"boards", "boards", "boardid", "board_title"},
	{"boardgroups", "boardgroups", "name", "title"},
	{"durations", "durations", "interval", "title"},
	{"securitytypes", "securitytypes", "security_type_name", "security_type_title"},
	{"securitygroups", "securitygroups", "name", "title"},
	{"securitycollections", "securitycollections", "name", "title"},
}

// indicesRef is the dictionary of index IDs served by the index analytics.
var indicesRef = refIndex{"indices", "indexids", "indexid", "shortname"}

// columnIndex finds the column, or returns -1.
func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

// buildSet indexes a dictionary block into a reference set.
func buildSet(ri refIndex, b *RawBlock) (*ReferenceSet, error) {
	k := columnIndex(b.Columns, ri.key)
	if k < 0 {
		return nil, errors.Reason("block %s has no column %s", ri.block, ri.key)
	}
	t := columnIndex(b.Columns, ri.title)
	add := func(row []Value, s *ReferenceSet) *ReferenceSet {
		if k >= len(row) || row[k] == nil {
			return s
		}
		var title string
		if t >= 0 && t < len(row) {
			title = formatValue(row[t])
		}
		s.Add(formatValue(row[k]), title)
		return s
	}
	return iterator.Reduce[[]Value, *ReferenceSet](
		iterator.FromSlice(b.Data), NewReferenceSet(ri.name), add), nil
}

// FetchReference downloads the exchange's dictionaries and builds the
// Reference for validating request parameters. It uses the client from the
// context, if any, ignoring its reference.
func FetchReference(ctx context.Context) (*Reference, error) {
	c := GetClient(ctx)
	if c == nil {
		c = newClient(URL, nil, nil)
	}
	only := map[string]Value{"iss.meta": "off", "iss.json": "compact"}

	index, err := c.get(ctx, "index", "/index.json", valuesOf(only))
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch dictionaries")
	}
	var sets []*ReferenceSet
	for _, ri := range indexRefs {
		b, ok := index[ri.block]
		if !ok || b == nil {
			return nil, errors.Reason("dictionary block %s is missing", ri.block)
		}
		s, err := buildSet(ri, b)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}

	analytics, err := c.get(ctx, "indices",
		"/statistics/engines/stock/markets/index/analytics.json", valuesOf(only))
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch the list of indices")
	}
	b, ok := analytics[indicesRef.block]
	if !ok || b == nil {
		return nil, errors.Reason("block %s is missing", indicesRef.block)
	}
	s, err := buildSet(indicesRef, b)
	if err != nil {
		return nil, err
	}
	sets = append(sets, s)
	logging.Debugf(ctx, "MOEX ISS: loaded %d reference sets", len(sets))
	return NewReference(sets...), nil
}
