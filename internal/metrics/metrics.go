// Package metrics defines the Prometheus collectors for the lottery
// core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters the services increment.
type Metrics struct {
	RoomsCreated       prometheus.Counter
	Joins              prometheus.Counter
	DuplicatePayments  prometheus.Counter
	RejectedJoins      prometheus.Counter
	Settlements        prometheus.Counter
	SettlementFailures prometheus.Counter
	NotifyFailures     prometheus.Counter
	ReapedRooms        prometheus.Counter
}

// New registers the lottery collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RoomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_rooms_created_total",
			Help: "Rooms opened by the matchmaker.",
		}),
		Joins: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_joins_total",
			Help: "Participants admitted into rooms.",
		}),
		DuplicatePayments: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_duplicate_payments_total",
			Help: "Payment deliveries rejected by the idempotency guard.",
		}),
		RejectedJoins: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_rejected_joins_total",
			Help: "Joins rejected by validation (exclusivity, full room, bad fee).",
		}),
		Settlements: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_settlements_total",
			Help: "Rooms settled with a drawn winner.",
		}),
		SettlementFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_settlement_failures_total",
			Help: "Settlement attempts that failed, including ledger write failures.",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_notify_failures_total",
			Help: "Best-effort result notifications that could not be delivered.",
		}),
		ReapedRooms: factory.NewCounter(prometheus.CounterOpts{
			Name: "lottery_reaped_rooms_total",
			Help: "Stale waiting rooms removed by the reaper.",
		}),
	}
}

// RegisterOpenRooms exposes the live count of non-completed rooms.
func RegisterOpenRooms(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lottery_open_rooms",
		Help: "Rooms currently waiting or drawing.",
	}, func() float64 {
		return float64(count())
	})
}
