package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_checkouts_total",
			Help: "Checkouts by result (completed, rejected, failed)",
		},
		[]string{"result"},
	)

	TransactionsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_transactions_cancelled_total",
			Help: "Cancelled point-of-sale transactions",
		},
	)

	AlertsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_alerts_generated_total",
			Help: "Alerts created by the alert scan",
		},
		[]string{"type"},
	)

	BillsPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_bills_paid_total",
			Help: "Bills moved to PAID",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers the collectors with the default registry.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			CheckoutsTotal,
			TransactionsCancelled,
			AlertsGenerated,
			BillsPaid,
		)
	})
}
