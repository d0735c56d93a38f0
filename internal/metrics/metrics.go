package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_generation_total",
			Help: "Total number of match generations by outcome (ok, upstream, parse, invalid, empty)",
		},
		[]string{"outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholarship_generation_duration_seconds",
			Help:    "Duration of the upstream generation call in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	LeadPersistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_lead_persist_total",
			Help: "Total number of lead persist attempts by remote status and local backup result",
		},
		[]string{"remote", "local"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_notifications_total",
			Help: "Total number of notification jobs by kind and outcome (sent, failed, dropped)",
		},
		[]string{"kind", "outcome"},
	)

	NotificationsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scholarship_notifications_queued",
			Help: "Number of notification jobs waiting for a worker",
		},
	)
)
