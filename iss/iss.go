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
	"net/url"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new client.
var URL = "https://iss.moex.com/iss"

const (
	// MaxRequestsPerQuery bounds the number of HTTP requests of a single
	// logical request. When reached, the data collected so far is returned
	// marked as partial.
	MaxRequestsPerQuery = 50
	// PageDelay is the pause between consecutive page requests.
	PageDelay = 500 * time.Millisecond
)

type fetchFunc func(ctx context.Context, uri string, result interface{}, query url.Values) error

// Client for querying ISS endpoints.
type Client struct {
	baseURL   string     // the base URL of the server
	catalog   *Catalog   // nil means DefaultCatalog()
	reference *Reference // nil disables reference membership checks
	maxCalls  int
	delay     time.Duration
	fetchJSON fetchFunc
	sleep     func(ctx context.Context, d time.Duration) error
}

func fetchJSON(ctx context.Context, uri string, result interface{}, query url.Values) error {
	return fetch.FetchJSON(ctx, uri, result, query, nil)
}

// sleep for d or until the context is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// newClient creates a new client.
func newClient(baseURL string, catalog *Catalog, ref *Reference) *Client {
	return &Client{
		baseURL:   baseURL,
		catalog:   catalog,
		reference: ref,
		maxCalls:  MaxRequestsPerQuery,
		delay:     PageDelay,
		fetchJSON: fetchJSON,
		sleep:     sleep,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client for the current URL and injects it into the
// context. A nil catalog means DefaultCatalog(). The reference, typically
// from FetchReference, validates tokens such as engines and boards; with nil,
// only the static reference sets are checked.
func UseClient(ctx context.Context, catalog *Catalog, ref *Reference) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, catalog, ref))
}

// Catalog used by the client.
func (c *Client) Catalog() (*Catalog, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	return DefaultCatalog()
}

// get fetches a single page of blocks. The label identifies the endpoint in
// logs and metrics.
func (c *Client) get(ctx context.Context, label, path string, query url.Values) (map[string]*RawBlock, error) {
	uri := c.baseURL + path
	logging.Debugf(ctx, "MOEX ISS: GET %s?%s", uri, query.Encode())
	var page map[string]*RawBlock
	start := time.Now()
	err := c.fetchJSON(ctx, uri, &page, query)
	issRequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		issRequestsTotal.WithLabelValues(label, "error").Inc()
		return nil, wrapError(ErrTransport, err, "GET %s", uri)
	}
	issRequestsTotal.WithLabelValues(label, "ok").Inc()
	return page, nil
}

// Request calls the endpoint with the arguments and collects all of its pages,
// up to MaxRequestsPerQuery requests. See Assemble for the meaning of the
// arguments.
func (c *Client) Request(ctx context.Context, id string, args map[string]Value, blocks []string, marketData bool) (*Result, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, errors.Annotate(err, "failed to load the catalog")
	}
	e, err := cat.Lookup(id)
	if err != nil {
		return nil, err
	}
	call, err := Assemble(&Env{Endpoint: e, Reference: c.reference}, args, blocks, marketData)
	if err != nil {
		return nil, err
	}
	p := newPager(c, call)
	data, err := p.run(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "endpoint %s", id)
	}
	res := NewResult(data)
	res.Partial = p.partial
	res.Calls = p.calls
	return res, nil
}

// Request calls the endpoint using the client from the context.
func Request(ctx context.Context, id string, args map[string]Value, blocks []string, marketData bool) (*Result, error) {
	c := GetClient(ctx)
	if c == nil {
		return nil, errors.Reason("no client in context")
	}
	return c.Request(ctx, id, args, blocks, marketData)
}

// Query is a builder for a request of an endpoint.
type Query struct {
	id         string
	args       map[string]Value
	blocks     []string
	marketData bool
}

// NewQuery creates a new query of the endpoint.
func NewQuery(id string) *Query {
	return &Query{id: id, args: make(map[string]Value)}
}

// Copy creates a copy of the query. It is primarily used in its builder
// methods. Argument values are shared, so a slice value must not be modified
// after it's set.
func (q *Query) Copy() *Query {
	return &Query{
		id:         q.id,
		args:       maps.Clone(q.args),
		blocks:     slices.Clone(q.blocks),
		marketData: q.marketData,
	}
}

// Set an argument: a path entity or a query parameter. This and other builder
// methods always create a copy of the query, leaving the original intact.
func (q *Query) Set(name string, v Value) *Query {
	q2 := q.Copy()
	q2.args[name] = v
	return q2
}

// Columns restricts the block to only these columns.
func (q *Query) Columns(block string, columns ...string) *Query {
	return q.Set(ColumnsPrefix+block, columns)
}

// Blocks restricts the response to only these blocks.
func (q *Query) Blocks(blocks ...string) *Query {
	q2 := q.Copy()
	q2.blocks = append(q2.blocks, blocks...)
	return q2
}

// MarketData requests the current market data.
func (q *Query) MarketData() *Query {
	q2 := q.Copy()
	q2.marketData = true
	return q2
}

// Read executes the query using the Client from the context.
func (q *Query) Read(ctx context.Context) (*Result, error) {
	return Request(ctx, q.id, q.args, q.blocks, q.marketData)
}
