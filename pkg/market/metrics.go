package market

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatai_market_provider_requests_total",
			Help: "Provider calls made by the market gateway, by outcome.",
		},
		[]string{"provider", "op", "outcome"},
	)
	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beatai_market_provider_duration_seconds",
			Help:    "Latency of individual provider calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "op"},
	)
)

func observeProvider(provider, op string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(provider, op, outcome).Inc()
	providerLatency.WithLabelValues(provider, op).Observe(seconds)
}
