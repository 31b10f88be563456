package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger
	LedgerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hype",
		Subsystem: "ledger",
		Name:      "calls_total",
		Help:      "Ledger operations by result",
	}, []string{"op", "result"})

	LedgerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hype",
		Subsystem: "ledger",
		Name:      "call_duration_seconds",
		Help:      "Ledger operation duration including confirmation",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"op"})

	// Issuance
	IssuanceSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hype",
		Subsystem: "issuance",
		Name:      "steps_total",
		Help:      "Issuance steps by result",
	}, []string{"step", "result"})

	// Shares
	SharesMinted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hype",
		Subsystem: "shares",
		Name:      "minted_base_units_total",
		Help:      "Base units minted to startup accounts",
	})

	TransferAuditBacklog = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hype",
		Subsystem: "shares",
		Name:      "transfer_audit_backlog_total",
		Help:      "Transfers whose audit row was queued for reconciliation",
	})

	BatchItemErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hype",
		Subsystem: "reader",
		Name:      "batch_item_errors_total",
		Help:      "Per-token failures in batch balance reads",
	})
)

// Result labels a call outcome
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
