// Package metrics exposes Prometheus counters for the HTTP API and the
// order workflow.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiskarna_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tiskarna_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	OrdersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiskarna_orders_submitted_total",
			Help: "Orders submitted, by service",
		},
		[]string{"service"},
	)
	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiskarna_order_transitions_total",
			Help: "Order status changes, by target status",
		},
		[]string{"status"},
	)
	StockDeducted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiskarna_stock_deducted_units_total",
			Help: "Inventory units removed, by item",
		},
		[]string{"item"},
	)
	StockShortfalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiskarna_stock_shortfalls_total",
			Help: "Deductions that found less stock than required",
		},
	)
)

// NormalizePath reduces a request path to a low-cardinality label: the
// first two segments, with numeric IDs dropped.
func NormalizePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	var kept []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err == nil {
			continue
		}
		kept = append(kept, part)
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return "root"
	}
	return strings.Join(kept, "/")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latencies.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := NormalizePath(r.URL.Path)
		RequestTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
