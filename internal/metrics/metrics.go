// Package metrics holds the Prometheus collectors shared by the renderer,
// the record stores and the HTTP API.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qrgen"

// Metrics exposes collectors for payload encoding, rendering and record storage.
type Metrics struct {
	payloads      *prometheus.CounterVec
	renderLatency *prometheus.HistogramVec
	renderErrors  *prometheus.CounterVec
	logoFallbacks prometheus.Counter
	recordOps     *prometheus.CounterVec
	previews      *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNewMetrics registers the collectors with reg and panics on a conflicting
// registration. Collectors already registered under the same name are reused.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		payloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payload",
			Name:      "encoded_total",
			Help:      "Payloads encoded, by intent kind.",
		}, []string{"kind"}),
		renderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time spent rendering a symbol.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format", "status"}),
		renderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "failures_total",
			Help:      "Render failures, by reason.",
		}, []string{"reason"}),
		logoFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "logo_fallbacks_total",
			Help:      "Renders that dropped the logo after it failed to load.",
		}),
		recordOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Record store operations, by operation and status.",
		}, []string{"op", "status"}),
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "results_total",
			Help:      "Preview submissions, by outcome.",
		}, []string{"outcome"}),
	}

	m.payloads = register(reg, m.payloads)
	m.renderLatency = register(reg, m.renderLatency)
	m.renderErrors = register(reg, m.renderErrors)
	m.logoFallbacks = register(reg, m.logoFallbacks)
	m.recordOps = register(reg, m.recordOps)
	m.previews = register(reg, m.previews)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// IncPayload counts one encoded payload.
func (m *Metrics) IncPayload(kind string) {
	if m == nil {
		return
	}
	m.payloads.WithLabelValues(kind).Inc()
}

// ObserveRender records the duration of a render with the given format and status.
func (m *Metrics) ObserveRender(format, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.renderLatency.WithLabelValues(format, status).Observe(d.Seconds())
}

// IncRenderFailure increments the failure counter for reason.
func (m *Metrics) IncRenderFailure(reason string) {
	if m == nil {
		return
	}
	m.renderErrors.WithLabelValues(reason).Inc()
}

// IncLogoFallback counts a render that was returned without its logo.
func (m *Metrics) IncLogoFallback() {
	if m == nil {
		return
	}
	m.logoFallbacks.Inc()
}

// IncRecordOp counts a store operation.
func (m *Metrics) IncRecordOp(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.recordOps.WithLabelValues(op, status).Inc()
}

// IncPreview counts a preview outcome ("published", "superseded", "failed").
func (m *Metrics) IncPreview(outcome string) {
	if m == nil {
		return
	}
	m.previews.WithLabelValues(outcome).Inc()
}
