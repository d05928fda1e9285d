package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayCallsLatencyMs,
		pollAttemptsTotal,
		pollSingleflightHits,
	)
}

var (
	gatewayCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_calls_latency_ms",
			Help:    "Push-gateway call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"op", "success"},
	)

	pollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_poll_attempts_total",
			Help: "Gateway status-query attempts, by parsed outcome.",
		},
		[]string{"outcome"},
	)

	pollSingleflightHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "status_poll_singleflight_hits_total",
			Help: "Poll requests that joined an already in-flight query loop.",
		},
	)
)

func ObserveGatewayCall(op string, start time.Time, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	gatewayCallsLatencyMs.WithLabelValues(norm(op), s).Observe(float64(time.Since(start).Milliseconds()))
}

func IncPollAttempt(outcome string) {
	pollAttemptsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSingleflightHit() {
	pollSingleflightHits.Inc()
}
