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

// Package iss is a client for the Informational & Statistical Server (ISS) of
// the Moscow Exchange.
//
// Endpoints are described by a catalog (see DefaultCatalog) and called by
// their numeric reference ID with a map of named arguments. The arguments are
// validated against the endpoint's accepted parameters and the exchange's
// reference data before any request is sent. Multi-page results are collected
// transparently, either by following the explicit "*.cursor" block or, for
// endpoints without one, by advancing "start" until pages stop changing.
//
// Example usage:
//
//	ref, err := iss.FetchReference(ctx)
//	if err != nil { ... }
//	ctx = iss.UseClient(ctx, nil, ref)
//	res, err := iss.NewQuery("65").
//	  Set("engine", "stock").
//	  Set("market", "shares").
//	  Set("security", "SBER").
//	  Set("from", "2024-01-01").
//	  Columns("history", "TRADEDATE", "CLOSE").
//	  Read(ctx)
//	if err != nil { ... }
//	for _, row := range res.Table.Rows { ... }
package iss
