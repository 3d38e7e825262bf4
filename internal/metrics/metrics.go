// Package metrics provides observability for the ledger core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ledger mutations and lifecycle outcomes.
type Metrics struct {
	WalletDebits     prometheus.Counter
	WalletCredits    prometheus.Counter
	TrustAdjustments prometheus.Counter
	RefundFanouts    prometheus.Counter
	RefundsIssued    prometheus.Counter
	CheckIns         prometheus.Counter
	LeavePenalties   prometheus.Counter
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		WalletDebits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_wallet_debits_total",
			Help: "Total number of successful wallet debits",
		}),
		WalletCredits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_wallet_credits_total",
			Help: "Total number of wallet credits",
		}),
		TrustAdjustments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_trust_adjustments_total",
			Help: "Total number of trust-score adjustments",
		}),
		RefundFanouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_refund_fanouts_total",
			Help: "Total number of event cancellations with refund fan-out",
		}),
		RefundsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_refunds_issued_total",
			Help: "Total number of individual deposit refunds issued",
		}),
		CheckIns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_checkins_total",
			Help: "Total number of successful QR or host-validated check-ins",
		}),
		LeavePenalties: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campus_leave_penalties_total",
			Help: "Total number of leave operations that incurred a trust penalty",
		}),
	}
}
