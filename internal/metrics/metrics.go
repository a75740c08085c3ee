package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evts_events_dispatched_total",
			Help: "Events dispatched, by outcome and whether they were persisted",
		},
		[]string{"outcome", "stored"}, // ok|conflict|error , true|false
	)

	EventsUpdatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evts_events_updated_total",
			Help: "Event updates, by outcome",
		},
		[]string{"outcome"}, // ok|missing|error
	)

	BroadcastPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evts_broadcast_published_total",
			Help: "Broadcast messages published, by channel",
		},
		[]string{"channel"}, // redis|kafka
	)

	SweepDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evts_sweep_deleted_total",
			Help: "Event rows deleted by the retention sweeper, by sweep",
		},
		[]string{"sweep"}, // actions|logs|retention
	)

	SweepErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evts_sweep_errors_total",
			Help: "Sweep cycles that failed, by sweep",
		},
		[]string{"sweep"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsDispatchedTotal,
		EventsUpdatedTotal,
		BroadcastPublishedTotal,
		SweepDeletedTotal,
		SweepErrorsTotal,
	)
}
