// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	OutcomePartial = "partial"
)

var Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contas",
	Name:      "mutations_total",
	Help:      "Entry mutations by operation and outcome.",
}, []string{"op", "outcome"})

var InstallmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "contas",
	Name:      "installments_created_total",
	Help:      "Installment entries persisted by recurring drafts.",
})

var ViewBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contas",
	Name:      "view_builds_total",
	Help:      "Month views derived from snapshots, by cache result.",
}, []string{"cache"})

var ViewBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "contas",
	Name:      "view_build_seconds",
	Help:      "Time spent deriving a month view from a snapshot.",
	Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
})

var SnapshotEntries = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "contas",
	Name:      "snapshot_entries",
	Help:      "Entries in the most recently observed snapshot.",
})

var Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contas",
	Name:      "notifications_total",
	Help:      "Entry change notifications by direction and outcome.",
}, []string{"direction", "outcome"})

var Exports = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contas",
	Name:      "exports_total",
	Help:      "Monthly report exports by outcome.",
}, []string{"outcome"})

// Outcome maps an error to the outcome label.
func Outcome(err error, invalid func(error) bool) string {
	switch {
	case err == nil:
		return OutcomeOK
	case invalid != nil && invalid(err):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "contas",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the per-client rate limiter.",
})
