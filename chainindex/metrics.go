// Copyright 2026 Blink Labs Software
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

package chainindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type chainIndexMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	tipHeight prometheus.Gauge
}

func newChainIndexMetrics(promRegistry prometheus.Registerer) *chainIndexMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &chainIndexMetrics{
		requests: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobject_chainindex_rpc_requests_total",
				Help: "total RPC requests sent to the chain node",
			},
			[]string{"method"},
		),
		errors: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobject_chainindex_rpc_errors_total",
				Help: "total RPC requests to the chain node that failed",
			},
			[]string{"method"},
		),
		tipHeight: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gobject_chainindex_tip_height",
				Help: "height of the last observed chain tip",
			},
		),
	}
}

func (m *chainIndexMetrics) request(method string, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method).Inc()
	if err != nil {
		m.errors.WithLabelValues(method).Inc()
	}
}

func (m *chainIndexMetrics) setTipHeight(height int32) {
	if m == nil {
		return
	}
	m.tipHeight.Set(float64(height))
}
