// Package metrics exposes Prometheus metrics for the onboarding service.
//
// Every Metrics value owns its own registry, so several servers can live in
// one process (as they do in tests). All recording methods are safe to call
// on a nil *Metrics.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for key management and registry traffic.
type Metrics struct {
	registry *prometheus.Registry

	// Key pairs issued by the generator
	KeysGenerated prometheus.Counter

	// Subscription attempts by environment and terminal state
	SubscriptionOutcome *prometheus.CounterVec

	// on_subscribe callbacks by environment and result
	CallbackOutcome *prometheus.CounterVec

	// Registry call latency by endpoint, environment and outcome
	RegistryCallLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered under namespace.
func New(namespace string) *Metrics {
	namespace = sanitizeNamespace(namespace)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		KeysGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_generated_total",
			Help:      "Total key pairs generated",
		}),

		SubscriptionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Subscription attempts by environment and resulting state",
		}, []string{"environment", "state"}),

		CallbackOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "on_subscribe_callbacks_total",
			Help:      "on_subscribe challenge callbacks by environment and result",
		}, []string{"environment", "result"}), // result: "answered", "failed"

		RegistryCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_call_duration_seconds",
			Help:      "Duration of registry HTTP calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint", "environment", "outcome"}),
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncKeysGenerated records a newly issued key pair.
func (m *Metrics) IncKeysGenerated() {
	if m != nil {
		m.KeysGenerated.Inc()
	}
}

// IncSubscription records the state a subscription attempt ended in.
func (m *Metrics) IncSubscription(environment, state string) {
	if m != nil {
		m.SubscriptionOutcome.WithLabelValues(environment, state).Inc()
	}
}

// IncCallback records an on_subscribe callback result.
func (m *Metrics) IncCallback(environment string, answered bool) {
	if m != nil {
		result := "failed"
		if answered {
			result = "answered"
		}
		m.CallbackOutcome.WithLabelValues(environment, result).Inc()
	}
}

// ObserveRegistryCall records the duration of a registry call.
func (m *Metrics) ObserveRegistryCall(endpoint, environment, outcome string, d time.Duration) {
	if m != nil {
		m.RegistryCallLatency.WithLabelValues(endpoint, environment, outcome).Observe(d.Seconds())
	}
}

func sanitizeNamespace(ns string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, ns)
}
