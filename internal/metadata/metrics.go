package metadata

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for metadata lookups.
type Metrics struct {
	AttemptsTotal  *prometheus.CounterVec
	RetriesTotal   *prometheus.CounterVec
	OutcomesTotal  *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
}

// NewMetrics constructs the collectors and registers them on reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_attempts_total",
				Help: "Total HTTP attempts issued against metadata sources.",
			},
			[]string{"source"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_retries_total",
				Help: "Total retries scheduled after a transient upstream failure.",
			},
			[]string{"source"},
		),
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_lookups_total",
				Help: "Completed metadata lookups by outcome.",
			},
			[]string{"source", "outcome"},
		),
		LookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metadata_lookup_duration_seconds",
				Help:    "Latency of a complete lookup including retries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.AttemptsTotal, m.RetriesTotal, m.OutcomesTotal, m.LookupDuration)
	}
	return m
}

func (m *Metrics) incAttempt(source string) {
	if m != nil {
		m.AttemptsTotal.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) incRetry(source string) {
	if m != nil {
		m.RetriesTotal.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) observe(source, outcome string, d time.Duration) {
	if m != nil {
		m.OutcomesTotal.WithLabelValues(source, outcome).Inc()
		m.LookupDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}
