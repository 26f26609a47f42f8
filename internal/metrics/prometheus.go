package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"steward/internal/reconciler"
)

// PrometheusCounters exports callback outcomes as Prometheus counters,
// implementing the reconciler's EventCounters. It can wrap another
// EventCounters so the in-process tally keeps counting alongside the
// exported metrics.
type PrometheusCounters struct {
	successes *prometheus.CounterVec
	errors    *prometheus.CounterVec

	next reconciler.EventCounters
}

// NewPrometheusCounters registers the callback counters with registerer and
// returns the adapter. kind labels the resource kind the counters belong to;
// next, when non-nil, receives every increment as well.
func NewPrometheusCounters(registerer prometheus.Registerer, kind string, next reconciler.EventCounters) (*PrometheusCounters, error) {
	labels := prometheus.Labels{"kind": kind}

	successes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "steward",
		Subsystem:   "reconciler",
		Name:        "callback_successes_total",
		Help:        "Number of controller callbacks that completed without error.",
		ConstLabels: labels,
	}, []string{"callback"})

	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "steward",
		Subsystem:   "reconciler",
		Name:        "callback_errors_total",
		Help:        "Number of controller callbacks that returned an error or failed to construct.",
		ConstLabels: labels,
	}, []string{"callback"})

	for _, collector := range []prometheus.Collector{successes, errors} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return &PrometheusCounters{successes: successes, errors: errors, next: next}, nil
}

// IncSuccess implements reconciler.EventCounters.
func (c *PrometheusCounters) IncSuccess(kind reconciler.CallbackKind) {
	c.successes.WithLabelValues(string(kind)).Inc()
	if c.next != nil {
		c.next.IncSuccess(kind)
	}
}

// IncError implements reconciler.EventCounters.
func (c *PrometheusCounters) IncError(kind reconciler.CallbackKind) {
	c.errors.WithLabelValues(string(kind)).Inc()
	if c.next != nil {
		c.next.IncError(kind)
	}
}

// Handler returns the HTTP handler serving the given registry in Prometheus
// exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
