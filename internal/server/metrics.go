package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Render outcomes recorded by the renders counter.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

type metrics struct {
	renders  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelform",
			Name:      "renders_total",
			Help:      "Form renders served, by renderer and outcome.",
		}, []string{"renderer", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelform",
			Name:      "render_duration_seconds",
			Help:      "Time spent building and rendering a form.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"renderer"}),
	}
	reg.MustRegister(m.renders, m.duration)
	return m
}

func (m *metrics) observe(renderer, outcome string, started time.Time) {
	m.renders.WithLabelValues(renderer, outcome).Inc()
	m.duration.WithLabelValues(renderer).Observe(time.Since(started).Seconds())
}
