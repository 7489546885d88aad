package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		cyclesTotal,
		cycleDurationSeconds,
		itemsProcessedTotal,
		activeSources,
		disabledSources,
	)
}

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_cycles_total",
			Help: "Monitoring passes run, labeled by result.",
		},
		[]string{"result"}, // 'ok', 'error'
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monitor_cycle_duration_seconds",
			Help:    "Wall time of one monitoring pass over all due sources.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	itemsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_processed_total",
			Help: "Channel items settled by the engine, labeled by action and outcome.",
		},
		[]string{"action", "outcome"}, // action='boost'|'repost', outcome='success'|'failed'|'filtered'
	)

	activeSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sources",
			Help: "Enabled sources known to the engine at the last pass.",
		},
	)

	disabledSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "disabled_sources",
			Help: "Sources sitting disabled in the error state at the last pass.",
		},
	)
)

func ObserveCycle(d time.Duration, failed bool) {
	result := "ok"
	if failed {
		result = "error"
	}
	cyclesTotal.WithLabelValues(result).Inc()
	cycleDurationSeconds.Observe(d.Seconds())
}

func IncItemProcessed(action, outcome string) {
	itemsProcessedTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

func SetActiveSources(n int) {
	activeSources.Set(float64(n))
}

func SetDisabledSources(n int) {
	disabledSources.Set(float64(n))
}
