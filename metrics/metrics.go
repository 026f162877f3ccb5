// Package metrics exposes rate limiting decisions as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

// Metrics collects per-route admission counters and the wait times handed
// to denied clients.
type Metrics struct {
	Decisions *prometheus.CounterVec
	RetryWait prometheus.Histogram
}

// New registers the collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratemeter_decisions_total",
				Help: "Rate limiting decisions, by route and outcome",
			},
			[]string{"route", "outcome"},
		),
		RetryWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ratemeter_retry_wait_seconds",
				Help:    "Suggested wait time handed out with denials",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}
	reg.MustRegister(m.Decisions, m.RetryWait)
	return m
}

// Observe records one decision. It has the signature the middleware's
// OnDecision hook expects.
func (m *Metrics) Observe(route string, d ratemeter.Decision) {
	if d.Allowed {
		m.Decisions.WithLabelValues(route, "allowed").Inc()
		return
	}
	m.Decisions.WithLabelValues(route, "denied").Inc()
	m.RetryWait.Observe(d.RetryAfter(time.Now()).Seconds())
}
