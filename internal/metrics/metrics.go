package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	Operations   *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec
	JWKSFetches  *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// New creates the collectors and registers them with registry
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vencura",
			Name:      "operations_total",
			Help:      "Custody operations by type and result",
		}, []string{"type", "result"}),

		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vencura",
			Name:      "auth_failures_total",
			Help:      "Rejected bearer tokens by reason",
		}, []string{"reason"}),

		JWKSFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vencura",
			Name:      "jwks_fetches_total",
			Help:      "JWKS endpoint fetches by result",
		}, []string{"result"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vencura",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.Operations,
		m.AuthFailures,
		m.JWKSFetches,
		m.HTTPDuration,
	)

	return m
}

// RecordOperation counts a custody operation
func (m *Metrics) RecordOperation(opType string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(opType, result(err == nil)).Inc()
}

func (m *Metrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordJWKSFetch(ok bool) {
	if m == nil {
		return
	}
	m.JWKSFetches.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
