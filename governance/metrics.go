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

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the governance prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	votesProcessed    *prometheus.CounterVec
	collateralChecks  *prometheus.CounterVec
	orphansAdded      prometheus.Counter
	orphansExpired    prometheus.Counter
	orphansRecovered  prometheus.Counter
	orphansDropped    prometheus.Counter
	sentinelUpdates   prometheus.Counter
	objectsTracked    prometheus.Gauge
	objectsPostponed  prometheus.Gauge
	invalidVotesTotal prometheus.Counter
}

func NewMetrics(promRegistry prometheus.Registerer) *Metrics {
	promautoFactory := promauto.With(promRegistry)
	return &Metrics{
		votesProcessed: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobject_votes_processed_total",
				Help: "votes processed by result",
			},
			[]string{"result"},
		),
		collateralChecks: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gobject_collateral_checks_total",
				Help: "collateral validations by outcome",
			},
			[]string{"outcome"},
		),
		orphansAdded: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gobject_orphan_votes_added_total",
			Help: "votes cached because their voter was unknown",
		}),
		orphansExpired: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gobject_orphan_votes_expired_total",
			Help: "orphan votes dropped after expiring",
		}),
		orphansRecovered: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gobject_orphan_votes_recovered_total",
			Help: "orphan votes accepted once their voter became known",
		}),
		orphansDropped: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gobject_orphan_votes_dropped_total",
			Help: "orphan votes rejected on retry",
		}),
		sentinelUpdates: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gobject_sentinel_updates_total",
			Help: "sentinel flag recomputations",
		}),
		objectsTracked: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "gobject_objects",
			Help: "current count of tracked governance objects",
		}),
		objectsPostponed: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "gobject_objects_postponed",
			Help: "current count of objects waiting for revalidation",
		}),
		invalidVotesTotal: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gobject_invalid_votes_total",
			Help: "votes that failed validation",
		}),
	}
}

func (m *Metrics) voteProcessed(err error) {
	if m == nil {
		return
	}
	result := "accepted"
	if err != nil {
		result = VoteErrorKindOf(err).String()
	}
	m.votesProcessed.WithLabelValues(result).Inc()
}

func (m *Metrics) collateralChecked(err error) {
	if m == nil {
		return
	}
	outcome := "valid"
	if err != nil {
		outcome = "invalid"
	}
	m.collateralChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) orphanAdded() {
	if m == nil {
		return
	}
	m.orphansAdded.Inc()
}

func (m *Metrics) orphanExpired() {
	if m == nil {
		return
	}
	m.orphansExpired.Inc()
}

func (m *Metrics) orphanRecovered() {
	if m == nil {
		return
	}
	m.orphansRecovered.Inc()
}

func (m *Metrics) orphanDropped() {
	if m == nil {
		return
	}
	m.orphansDropped.Inc()
}

func (m *Metrics) sentinelUpdated() {
	if m == nil {
		return
	}
	m.sentinelUpdates.Inc()
}

func (m *Metrics) invalidVote() {
	if m == nil {
		return
	}
	m.invalidVotesTotal.Inc()
}

func (m *Metrics) setObjects(tracked, postponed int) {
	if m == nil {
		return
	}
	m.objectsTracked.Set(float64(tracked))
	m.objectsPostponed.Set(float64(postponed))
}
