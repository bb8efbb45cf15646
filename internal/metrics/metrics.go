// Package metrics provides Prometheus instrumentation for the daemon.
// All methods are safe on a nil receiver so tests can wire components
// without a registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Result labels for delivery and command counters.
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultSkipped  = "skipped"
	ResultApplied  = "applied"
	ResultRejected = "rejected"
)

// Metrics holds the daemon's Prometheus collectors.
type Metrics struct {
	transitions     *prometheus.CounterVec
	suppressed      prometheus.Counter
	deliveries      *prometheus.CounterVec
	commands        *prometheus.CounterVec
	healthPublishes *prometheus.CounterVec
	overrideActive  prometheus.Gauge
}

// New creates and registers the collectors. A nil registerer uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "failsafe_transitions_total",
		Help: "Confirmed debounced source transitions, by new source.",
	}, []string{"to"})
	suppressed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "failsafe_transitions_suppressed_total",
		Help: "Confirmed transitions swallowed by an active override window.",
	})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "failsafe_deliveries_total",
		Help: "Notification delivery attempts per channel and result.",
	}, []string{"channel", "result"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "failsafe_commands_total",
		Help: "Inbound override commands per action and result.",
	}, []string{"action", "result"})
	healthPublishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "failsafe_health_publishes_total",
		Help: "Health beacon publish attempts per result.",
	}, []string{"result"})
	overrideActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "failsafe_override_active",
		Help: "1 while an override window suppresses notifications.",
	})

	reg.MustRegister(transitions, suppressed, deliveries, commands, healthPublishes, overrideActive)

	return &Metrics{
		transitions:     transitions,
		suppressed:      suppressed,
		deliveries:      deliveries,
		commands:        commands,
		healthPublishes: healthPublishes,
		overrideActive:  overrideActive,
	}
}

// Transition counts a confirmed transition to the given source.
func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// Suppressed counts a transition swallowed by an override window.
func (m *Metrics) Suppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

// Delivery counts one delivery attempt.
func (m *Metrics) Delivery(channel, result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, result).Inc()
}

// Command counts one inbound command.
func (m *Metrics) Command(action, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(action, result).Inc()
}

// HealthPublish counts one beacon publish attempt.
func (m *Metrics) HealthPublish(result string) {
	if m == nil {
		return
	}
	m.healthPublishes.WithLabelValues(result).Inc()
}

// SetOverrideActive reflects the current suppression state.
func (m *Metrics) SetOverrideActive(active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1.0
	}
	m.overrideActive.Set(v)
}
