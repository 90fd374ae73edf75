// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportarr_pass_total",
		Help: "Generation passes by outcome",
	}, []string{"outcome"}) // outcome=success|failure|rejected

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportarr_pass_duration_seconds",
		Help:    "Wall time of one full generation pass",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	classifiedStreams = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sportarr_classified_streams",
		Help: "Streams by classification category (last pass)",
	}, []string{"category"})

	matchConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportarr_match_confidence",
		Help:    "Confidence of accepted matches",
		Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
	})

	unmatchedStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sportarr_unmatched_streams",
		Help: "Eligible streams without a qualifying event (last pass)",
	})

	channelsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sportarr_channels",
		Help: "Managed channels by lifecycle state (last pass)",
	}, []string{"state"})

	reconcileActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportarr_reconcile_actions_total",
		Help: "Corrective registry actions by type and outcome",
	}, []string{"action", "outcome"})

	registryFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportarr_registry_fetch_errors_total",
		Help: "Failed registry listings (pass aborted destructive actions)",
	})

	scheduleFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportarr_schedule_fetch_errors_total",
		Help: "Failed schedule fetches per league",
	}, []string{"league"})
)

func RecordPass(outcome string, took time.Duration) {
	passTotal.WithLabelValues(outcome).Inc()
	if outcome != "rejected" {
		passDuration.Observe(took.Seconds())
	}
}

func SetClassified(category string, n int) {
	classifiedStreams.WithLabelValues(category).Set(float64(n))
}

func ObserveConfidence(c float64) { matchConfidence.Observe(c) }

func SetUnmatched(n int) { unmatchedStreams.Set(float64(n)) }

func SetChannels(state string, n int) {
	channelsByState.WithLabelValues(state).Set(float64(n))
}

func RecordAction(action, outcome string) {
	reconcileActions.WithLabelValues(action, outcome).Inc()
}

func RecordRegistryFetchError() { registryFetchErrors.Inc() }

func RecordScheduleFetchError(league string) {
	scheduleFetchErrors.WithLabelValues(league).Inc()
}
