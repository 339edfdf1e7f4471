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

package freemap

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerMetricsOnce sync.Once

var (
	sectorsAllocated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diskfs",
		Subsystem: "freemap",
		Name:      "sectors_allocated_total",
		Help:      "Number of sectors handed out by Allocate.",
	})
	sectorsReleased = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diskfs",
		Subsystem: "freemap",
		Name:      "sectors_released_total",
		Help:      "Number of sectors returned via Release.",
	})
	allocationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diskfs",
		Subsystem: "freemap",
		Name:      "allocation_failures_total",
		Help:      "Number of Allocate calls that failed due to exhaustion.",
	})
)

func registerMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(sectorsAllocated, sectorsReleased, allocationFailures)
	})
}
