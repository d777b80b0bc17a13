// Package metrics exposes the Prometheus instruments for the commerce core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	transitionsAccepted *prometheus.CounterVec
	transitionsRejected prometheus.Counter
	checkouts           *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpLatency         *prometheus.HistogramVec
}

// New registers the commerce instruments on the default registry.
func New(service string) *Metrics {
	m := &Metrics{
		transitionsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: service,
			Name:      "order_transitions_total",
			Help:      "Accepted order status transitions.",
		}, []string{"from", "to"}),
		transitionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: service,
			Name:      "order_transitions_rejected_total",
			Help:      "Rejected (illegal) order status transitions.",
		}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: service,
			Name:      "checkouts_total",
			Help:      "Payment confirmations by outcome.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "commerce",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
	}
	prometheus.MustRegister(
		m.transitionsAccepted,
		m.transitionsRejected,
		m.checkouts,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// The observation methods are safe on a nil receiver so tests and partial
// wirings can skip metrics entirely.

func (m *Metrics) TransitionAccepted(from, to string) {
	if m == nil {
		return
	}
	m.transitionsAccepted.WithLabelValues(from, to).Inc()
}

func (m *Metrics) TransitionRejected() {
	if m == nil {
		return
	}
	m.transitionsRejected.Inc()
}

func (m *Metrics) Checkout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		m.httpLatency.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}
