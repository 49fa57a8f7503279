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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	proposalsCreated   prometheus.Counter
	proposalsCompleted prometheus.Counter
	proposalsRemoved   prometheus.Counter
	votesCast          *prometheus.CounterVec
	actionFailures     *prometheus.CounterVec
	activeMembers      prometheus.Gauge
	openProposals      prometheus.Gauge
	txnsApplied        *prometheus.CounterVec
	txnsRejected       *prometheus.CounterVec
	txnDuration        prometheus.Histogram
	logSequence        prometheus.Gauge
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposalsCreated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_proposals_created_total",
		Help: "total number of proposals created",
	})
	m.proposalsCompleted = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_proposals_completed_total",
		Help: "total number of proposals that reached quorum",
	})
	m.proposalsRemoved = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_proposals_removed_total",
		Help: "total number of proposals withdrawn by their proposer",
	})
	m.votesCast = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_votes_cast_total",
			Help: "total number of recorded votes",
		},
		[]string{"accept"},
	)
	m.actionFailures = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_action_failures_total",
			Help: "total number of completed proposals whose action failed",
		},
		[]string{"kind"},
	)
	m.activeMembers = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gavel_members_active",
		Help: "current number of active members",
	})
	m.openProposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gavel_proposals_open",
		Help: "current number of open proposals",
	})
	m.txnsApplied = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_ledger_txns_applied_total",
			Help: "total number of applied ledger transactions",
		},
		[]string{"op"},
	)
	m.txnsRejected = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_ledger_txns_rejected_total",
			Help: "total number of rejected ledger transactions",
		},
		[]string{"op", "code"},
	)
	m.txnDuration = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "gavel_ledger_txn_duration_seconds",
		Help:    "time taken to apply and persist a ledger transaction",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})
	m.logSequence = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gavel_ledger_log_length",
		Help: "number of entries in the transaction log",
	})
}
