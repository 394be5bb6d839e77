package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// SubmissionsTotal counts every submission attempt by kind
	// (consultation, phone_lead) and outcome (accepted, invalid,
	// duplicate, rate_limited, store_error).
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_submissions_total",
			Help: "Total lead submission attempts",
		},
		[]string{"kind", "outcome"},
	)

	StoreRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lead_store_records",
			Help: "Records currently held in the store snapshot",
		},
		[]string{"kind"},
	)
)

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(StoreRecords)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
