package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoundsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sumrush_rounds_started_total",
			Help: "Total rounds created by gateway sessions",
		},
	)
	RoundsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumrush_rounds_finished_total",
			Help: "Total rounds that reached a terminal status",
		},
		[]string{"status"},
	)
	Selections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sumrush_selections_total",
			Help: "Total accepted number selections",
		},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumrush_active_sessions",
			Help: "Websocket sessions currently connected",
		},
	)
)

func init() {
	prometheus.MustRegister(RoundsStarted)
	prometheus.MustRegister(RoundsFinished)
	prometheus.MustRegister(Selections)
	prometheus.MustRegister(ActiveSessions)
}
