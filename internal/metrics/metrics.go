package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchases_total",
			Help: "Ticket purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	ledgerRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_request_duration_seconds",
			Help:    "Duration of ledger gateway operations, including validation wait",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation", "outcome"},
	)

	eventLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "event_lock_wait_seconds",
			Help:    "Time spent waiting for the per-event purchase lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
		},
	)
)

// Purchase outcomes.
const (
	OutcomeConfirmed      = "confirmed"
	OutcomeMintFailed     = "mint_failed"
	OutcomeTransferFailed = "transfer_failed"
	OutcomeUnsettled      = "unsettled"
	OutcomeRejected       = "rejected"
	OutcomeError          = "error"
)

func TrackPurchase(outcome string) {
	purchases.WithLabelValues(outcome).Inc()
}

// TrackLedgerCall records one gateway operation started at start.
func TrackLedgerCall(operation string, err error, start time.Time) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	ledgerRequests.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func TrackLockWait(d time.Duration) {
	eventLockWait.Observe(d.Seconds())
}
