// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerMetricsOnce sync.Once

var (
	hits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diskfs",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Number of Read/Write calls that found their sector already resident.",
	})
	misses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diskfs",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Number of Read/Write calls that had to load or claim a slot.",
	})
	evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diskfs",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Number of times a resident slot was reused for a different sector.",
	})
	writebacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diskfs",
		Subsystem: "cache",
		Name:      "writebacks_total",
		Help:      "Number of dirty frames written back to a device (eviction or flush).",
	})
)

func registerMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(hits, misses, evictions, writebacks)
	})
}
