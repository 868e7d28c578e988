package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	BookingsTotal          *prometheus.CounterVec
	CancellationsTotal     prometheus.Counter
	InsufficientStockTotal prometheus.Counter
	CompensationsTotal     prometheus.Counter
	CompensationFailures   prometheus.Counter
	RequestDuration        *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		BookingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hemobank_bookings_total",
			Help: "Bookings placed, labeled by blood group and priority",
		}, []string{"blood_group", "priority"}),
		CancellationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_booking_cancellations_total",
			Help: "Bookings cancelled with inventory restored",
		}),
		InsufficientStockTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_insufficient_stock_total",
			Help: "Booking or removal attempts rejected for lack of stock",
		}),
		CompensationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_compensations_total",
			Help: "Compensating transactions run after a ledger write failure",
		}),
		CompensationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hemobank_compensation_failures_total",
			Help: "Compensations that failed, leaving stores inconsistent",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hemobank_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(seconds)
}
