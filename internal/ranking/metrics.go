package ranking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess       = "success"
	outcomeServerError   = "server_error"
	outcomeNetworkError  = "network_error"
	outcomeProtocolError = "protocol_error"
	outcomeRequestError  = "request_error"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_requests_total",
			Help: "Total number of ranking requests by outcome",
		},
		[]string{"outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ranking_request_duration_seconds",
			Help:    "Duration of ranking requests in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)
)
