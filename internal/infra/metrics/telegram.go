package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramAPICallsTotal,
		telegramAPILatencyMs,
		telegramRateLimitHitsTotal,
	)
}

var (
	telegramAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_api_calls_total",
			Help: "Outbound Bot API calls, labeled by method and result.",
		},
		[]string{"method", "result"}, // result='ok'|'rate_limited'|'permission_denied'|'content_error'|'transient'
	)

	telegramAPILatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telegram_api_latency_ms",
			Help:    "Bot API call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"method"},
	)

	telegramRateLimitHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_hits_total",
			Help: "Total number of 429 responses received from the Bot API.",
		},
	)
)

func IncTelegramAPICall(method, result string) {
	telegramAPICallsTotal.WithLabelValues(norm(method), norm(result)).Inc()
}

func ObserveTelegramAPILatency(method string, ms int64) {
	telegramAPILatencyMs.WithLabelValues(norm(method)).Observe(float64(ms))
}

func IncTelegramRateLimitHit() {
	telegramRateLimitHitsTotal.Inc()
}
