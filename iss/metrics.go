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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of ISS requests, labeled by endpoint ID.
var (
	issRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moex_iss_requests_total",
		Help: "Total ISS HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	issRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moex_iss_request_duration_seconds",
		Help:    "ISS HTTP request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	issPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moex_iss_pages_total",
		Help: "Total result pages fetched by endpoint and paging strategy",
	}, []string{"endpoint", "paging"})

	issPartialResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moex_iss_partial_results_total",
		Help: "Total results truncated by the request limit, by endpoint",
	}, []string{"endpoint"})
)
