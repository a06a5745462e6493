package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CostCalculations    *prometheus.CounterVec
	StackTotal          prometheus.Histogram
	CatalogServices     prometheus.Gauge
}

// NewMetrics registers the server collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apicus",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "apicus",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"route", "method"},
		),
		CostCalculations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apicus",
				Name:      "cost_calculations_total",
				Help:      "Cost calculations by operation and whether an upgrade was required",
			},
			[]string{"operation", "upgrade_required"},
		),
		StackTotal: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apicus",
			Name:      "stack_total_monthly",
			Help:      "Monthly total of evaluated stacks",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		CatalogServices: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "apicus",
			Name:      "catalog_services",
			Help:      "Number of services in the loaded catalog",
		}),
	}
}

// RecordHTTPRequest records a completed request.
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordCost records one cost calculation.
func (m *Metrics) RecordCost(operation string, upgradeRequired bool) {
	m.CostCalculations.WithLabelValues(operation, strconv.FormatBool(upgradeRequired)).Inc()
}
