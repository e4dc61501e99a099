// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/dcfd/common"
)

const (
	resultSuccess   = "success"
	resultUnchanged = "unchanged"
	resultFailure   = "failure"
)

var (
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)

	parsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "parsed_total",
			Help:      "Parsed sources total",
		},
		[]string{"source", "result"},
	)

	parsedRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "parsed_records",
			Help:      "Records of the latest snapshot",
		},
		[]string{"source"},
	)

	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: common.App,
			Name:      "parse_duration_seconds",
			Help:      "Parse duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"source"},
	)

	watchSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "watch_subscribers",
			Help:      "Active /watch subscribers",
		},
	)

	triggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "triggered_total",
			Help:      "Parse triggered total",
		},
		[]string{"source", "trigger"},
	)
)

// deleteSourceMetrics 清理已删除数据源的指标
func deleteSourceMetrics(name string) {
	parsedRecords.DeleteLabelValues(name)
	parseDuration.DeleteLabelValues(name)
	parsedTotal.DeletePartialMatch(prometheus.Labels{"source": name})
	triggeredTotal.DeletePartialMatch(prometheus.Labels{"source": name})
}
