// Package metrics records backend traffic and panel state as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	connected       prometheus.Gauge
	sessionsStarted prometheus.Counter
	escalations     *prometheus.CounterVec
	refusals        *prometheus.CounterVec
}

// NewRecorder registers the panel metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_backend_requests_total",
				Help: "Backend requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supportflow_backend_request_duration_seconds",
				Help:    "Duration of backend requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "supportflow_backend_connected",
				Help: "1 when the last applied health probe reported the backend healthy",
			},
		),
		sessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "supportflow_sessions_started_total",
				Help: "Sessions adopted from backend responses",
			},
		),
		escalations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_escalations_total",
				Help: "Escalation attempts by outcome",
			},
			[]string{"outcome"},
		),
		refusals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_refused_operations_total",
				Help: "Operations refused locally before any backend call",
			},
			[]string{"operation", "reason"},
		),
	}
}

// ObserveRequest records one backend call. outcome is "ok", "backend_error" or "transport_error".
func (r *Recorder) ObserveRequest(endpoint, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	r.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (r *Recorder) SetConnected(connected bool) {
	if r == nil {
		return
	}
	if connected {
		r.connected.Set(1)
		return
	}
	r.connected.Set(0)
}

func (r *Recorder) IncSessionStarted() {
	if r == nil {
		return
	}
	r.sessionsStarted.Inc()
}

func (r *Recorder) IncEscalation(outcome string) {
	if r == nil {
		return
	}
	r.escalations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncRefused(operation, reason string) {
	if r == nil {
		return
	}
	r.refusals.WithLabelValues(operation, reason).Inc()
}
