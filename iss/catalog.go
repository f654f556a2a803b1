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
	_ "embed"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/moex/message"
)

// Paging strategies of an endpoint.
const (
	PagingNone      = "none"
	PagingCursor    = "cursor"
	PagingHeuristic = "heuristic"
)

// Value is an arbitrary parameter value or table cell.
type Value = interface{}

// ParamInfo documents an accepted query parameter.
type ParamInfo struct {
	Description string `json:"description"`
	Default     Value  `json:"default"` // server-side default, for documentation only
}

var _ message.Message = &ParamInfo{}

// InitMessage implements message.Message.
func (p *ParamInfo) InitMessage(js interface{}) error {
	return message.Init(p, js)
}

// BlockInfo documents a named data block of the response.
type BlockInfo struct {
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
}

var _ message.Message = &BlockInfo{}

// InitMessage implements message.Message.
func (b *BlockInfo) InitMessage(js interface{}) error {
	return message.Init(b, js)
}

// Endpoint describes a single ISS endpoint.
type Endpoint struct {
	ID          string `json:"-"` // the catalog key
	Description string `json:"description"`
	// Template is the URL path relative to the base URL, without the ".json"
	// suffix. Path entities appear in it as "{name}".
	Template      string                `json:"endpoint" required:"true"`
	PathEntities  []string              `json:"global_entities"`
	Params        map[string]*ParamInfo `json:"params"`
	Defaults      map[string]Value      `json:"defaults"` // sent unless overridden
	Blocks        map[string]*BlockInfo `json:"return_data" required:"true"`
	Paging        string                `json:"paging" default:"none" choices:"none,cursor,heuristic"`
	Cursor        string                `json:"cursor"` // e.g. "history.cursor"
	PageSizeParam string                `json:"page_size_param"`
	FAQ           string                `json:"faq_url"`
}

var _ message.Message = &Endpoint{}

// InitMessage implements message.Message. Besides the fields themselves, it
// checks that the endpoint is internally consistent.
func (e *Endpoint) InitMessage(js interface{}) error {
	if err := message.Init(e, js); err != nil {
		return err
	}
	for _, name := range e.PathEntities {
		if !strings.Contains(e.Template, "{"+name+"}") {
			return errors.Reason("path entity '%s' is not in the template %s",
				name, e.Template)
		}
	}
	for name := range e.Defaults {
		if !e.Accepts(name) {
			return errors.Reason("default for '%s' which is not a parameter", name)
		}
	}
	switch e.Paging {
	case PagingCursor:
		if e.Cursor == "" {
			return errors.Reason("cursor paging requires a cursor block")
		}
		if !strings.HasSuffix(e.Cursor, ".cursor") {
			return errors.Reason("cursor block must end in '.cursor': %s", e.Cursor)
		}
		fallthrough
	case PagingHeuristic:
		if !e.Accepts("start") {
			return errors.Reason("%s paging requires the 'start' parameter", e.Paging)
		}
	}
	if e.PageSizeParam != "" && !e.Accepts(e.PageSizeParam) {
		return errors.Reason("page size parameter '%s' is not accepted",
			e.PageSizeParam)
	}
	return nil
}

// Accepts whether the endpoint takes the named query parameter.
func (e *Endpoint) Accepts(name string) bool {
	_, ok := e.Params[name]
	return ok
}

// HasBlock whether the endpoint returns the named block.
func (e *Endpoint) HasBlock(name string) bool {
	_, ok := e.Blocks[name]
	return ok
}

// HasColumn whether any of the endpoint's blocks declares the column.
func (e *Endpoint) HasColumn(column string) bool {
	for _, b := range e.Blocks {
		for _, c := range b.Columns {
			if c == column {
				return true
			}
		}
	}
	return false
}

// Catalog is the read-only collection of endpoints keyed by ID.
type Catalog struct {
	endpoints map[string]*Endpoint
}

var _ message.Message = &Catalog{}

// InitMessage implements message.Message. The JSON is an object mapping
// endpoint IDs to endpoint descriptors.
func (c *Catalog) InitMessage(js interface{}) error {
	jsMap, ok := js.(map[string]interface{})
	if !ok {
		return errors.Reason("catalog is not a JSON object: %v", js)
	}
	c.endpoints = make(map[string]*Endpoint, len(jsMap))
	for id, v := range jsMap {
		var e Endpoint
		if err := e.InitMessage(v); err != nil {
			return errors.Annotate(err, "failed to load endpoint %s", id)
		}
		e.ID = id
		if err := verifyChecks(&e); err != nil {
			return errors.Annotate(err, "endpoint %s", id)
		}
		c.endpoints[id] = &e
	}
	return nil
}

// NewCatalog parses a catalog JSON.
func NewCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := message.FromJSON(&c, data); err != nil {
		return nil, errors.Annotate(err, "failed to load catalog")
	}
	return &c, nil
}

// LoadCatalog reads a catalog JSON file.
func LoadCatalog(fileName string) (*Catalog, error) {
	var c Catalog
	if err := message.FromFile(&c, fileName); err != nil {
		return nil, errors.Annotate(err, "failed to load catalog")
	}
	return &c, nil
}

//go:embed catalog.json
var catalogJSON []byte

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the built-in catalog of ISS endpoints. It is parsed
// once on the first call.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = NewCatalog(catalogJSON)
	})
	return defaultCatalog, defaultCatalogErr
}

// Lookup the endpoint by its ID.
func (c *Catalog) Lookup(id string) (*Endpoint, error) {
	e, ok := c.endpoints[id]
	if !ok {
		return nil, newError(ErrNotFound, "no endpoint with ID '%s'", id)
	}
	return e, nil
}

// IDs of all the endpoints in numerical order. Non-numeric IDs, if any, come
// last in lexicographic order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.endpoints))
	for id := range c.endpoints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, errI := strconv.Atoi(ids[i])
		nj, errJ := strconv.Atoi(ids[j])
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}
