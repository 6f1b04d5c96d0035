// Package metrics exposes Prometheus instrumentation for the polling
// engine: per-provider poll outcomes and latency, alert volume, and
// notification channel failures.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "spendwatch"

// Poll outcome label values.
const (
	PollSuccess         = "success"
	PollFailure         = "failure"
	PollUnknownProvider = "unknown_provider"
)

// Metrics holds all registered collectors.
type Metrics struct {
	CyclesTotal    prometheus.Counter
	PollsTotal     *prometheus.CounterVec
	PollDuration   *prometheus.HistogramVec
	AlertsTotal    *prometheus.CounterVec
	NotifyFailures *prometheus.CounterVec
}

// New creates and registers all collectors with the given registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Total number of completed polling cycles",
		}),

		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total provider polls by outcome",
		}, []string{"provider", "status"}),

		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Provider poll latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Total budget alerts raised by severity",
		}, []string{"severity"}),

		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Total notification delivery failures by channel",
		}, []string{"channel"}),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.PollsTotal,
		m.PollDuration,
		m.AlertsTotal,
		m.NotifyFailures,
	)
	return m
}
