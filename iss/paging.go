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
	"reflect"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// pager collects all the pages of a single call.
type pager struct {
	client  *Client
	call    *Call
	params  map[string]Value // the call's parameters updated for each page
	calls   int              // requests made so far
	partial bool             // stopped at the request limit with data left
}

func newPager(c *Client, call *Call) *pager {
	return &pager{client: c, call: call, params: maps.Clone(call.Params)}
}

func (p *pager) strategy() string {
	e := p.call.Endpoint
	if !e.Accepts("start") {
		return PagingNone
	}
	return e.Paging
}

// run collects the blocks according to the endpoint's paging strategy.
func (p *pager) run(ctx context.Context) (map[string]*RawBlock, error) {
	switch p.strategy() {
	case PagingCursor:
		return p.cursor(ctx)
	case PagingHeuristic:
		return p.heuristic(ctx)
	default:
		return p.fetch(ctx)
	}
}

// fetch the next page with the current parameters, pausing after the
// previous page, if any.
func (p *pager) fetch(ctx context.Context) (map[string]*RawBlock, error) {
	e := p.call.Endpoint
	if p.calls > 0 {
		if err := p.client.sleep(ctx, p.client.delay); err != nil {
			return nil, errors.Annotate(err, "interrupted before page %d", p.calls+1)
		}
	}
	p.calls++
	page, err := p.client.get(ctx, e.ID, p.call.Path, valuesOf(p.params))
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch page %d", p.calls)
	}
	if page == nil {
		page = map[string]*RawBlock{}
	}
	for name, b := range page {
		if b == nil {
			delete(page, name)
		}
	}
	issPagesTotal.WithLabelValues(e.ID, p.strategy()).Inc()
	logging.Infof(ctx, "MOEX ISS: fetched page %d of endpoint %s with %d blocks",
		p.calls, e.ID, len(page))
	return page, nil
}

// limited checks whether the request limit is reached, and if so marks the
// result as partial.
func (p *pager) limited(ctx context.Context) bool {
	if p.calls < p.client.maxCalls {
		return false
	}
	p.partial = true
	issPartialResultsTotal.WithLabelValues(p.call.Endpoint.ID).Inc()
	logging.Warningf(ctx,
		"MOEX ISS: endpoint %s has more data after %d requests; the result is partial",
		p.call.Endpoint.ID, p.calls)
	return true
}

func (p *pager) start() int {
	n, _ := asInt(p.params["start"])
	return n
}

// cursorPosition is the content of a "*.cursor" block.
type cursorPosition struct {
	index, total, pageSize int
}

func (c cursorPosition) more() bool {
	return c.pageSize > 0 && c.total > c.index+c.pageSize
}

func readCursor(name string, b *RawBlock) (cursorPosition, bool, error) {
	var c cursorPosition
	if b == nil || len(b.Data) == 0 {
		return c, false, nil
	}
	row := b.Data[0]
	for _, f := range []struct {
		column string
		dest   *int
	}{
		{"INDEX", &c.index},
		{"TOTAL", &c.total},
		{"PAGESIZE", &c.pageSize},
	} {
		i := columnIndex(b.Columns, f.column)
		if i < 0 || i >= len(row) {
			return c, false, errors.Reason("block %s has no %s", name, f.column)
		}
		n, ok := asInt(row[i])
		if !ok {
			return c, false, errors.Reason("%s.%s is not an integer: %v",
				name, f.column, row[i])
		}
		*f.dest = n
	}
	return c, true, nil
}

// cursor follows the explicit cursor block until it says there is no more
// data. The cursor block itself is not part of the result.
func (p *pager) cursor(ctx context.Context) (map[string]*RawBlock, error) {
	cursorName := p.call.Endpoint.Cursor
	block := strings.TrimSuffix(cursorName, ".cursor")
	if _, ok := p.params["start"]; !ok {
		p.params["start"] = 0
	}
	page, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	res := make(map[string]*RawBlock, len(page))
	for name, b := range page {
		if name != cursorName {
			res[name] = b
		}
	}
	pos, ok, err := readCursor(cursorName, page[cursorName])
	if err != nil || !ok || res[block] == nil {
		return res, err
	}
	p.params["iss.only"] = []string{block, cursorName}
	for pos.more() {
		if p.limited(ctx) {
			break
		}
		p.params["start"] = p.start() + pos.pageSize
		page, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if b, ok := page[block]; ok {
			res[block].Data = append(res[block].Data, b.Data...)
		}
		if pos, ok, err = readCursor(cursorName, page[cursorName]); err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return res, nil
}

// heuristic pages through the blocks of endpoints without a cursor. Only
// top-level blocks (without "." in the name) are paged. A block is complete
// when its next page is empty or ends with the same row as the previous page.
func (p *pager) heuristic(ctx context.Context) (map[string]*RawBlock, error) {
	if _, ok := p.params["start"]; !ok {
		p.params["start"] = 0
	}
	res, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool)
	pageSize := 0
	for name, b := range res {
		if strings.Contains(name, ".") || len(b.Data) == 0 {
			continue
		}
		active[name] = true
		if len(b.Data) > pageSize {
			pageSize = len(b.Data)
		}
	}
	for len(active) > 0 {
		if p.limited(ctx) {
			break
		}
		names := maps.Keys(active)
		slices.Sort(names)
		p.params["start"] = p.start() + pageSize
		p.params["iss.only"] = names
		page, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			prev := res[name]
			b, ok := page[name]
			if !ok || len(b.Data) == 0 ||
				reflect.DeepEqual(b.Data[len(b.Data)-1], prev.Data[len(prev.Data)-1]) {
				delete(active, name)
				logging.Debugf(ctx, "MOEX ISS: block %s is complete with %d rows",
					name, len(prev.Data))
				continue
			}
			prev.Data = append(prev.Data, b.Data...)
		}
	}
	return res, nil
}
