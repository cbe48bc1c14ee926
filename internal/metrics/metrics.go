// Package metrics exposes the daemon's operational counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors the board and dispatcher feed.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal   *prometheus.CounterVec
	ActionTotal    *prometheus.CounterVec
	SoundTriggers  prometheus.Counter
	ActiveTickets  prometheus.Gauge
	OverdueTickets prometheus.Gauge
	Items86        prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kds_refresh_total",
			Help: "Store refresh cycles by outcome (ok, partial, failed).",
		}, []string{"outcome"}),
		ActionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kds_action_total",
			Help: "Dispatched lifecycle actions by kind and outcome.",
		}, []string{"action", "outcome"}),
		SoundTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kds_sound_triggers_total",
			Help: "New-ticket sound notifications emitted.",
		}),
		ActiveTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kds_active_tickets",
			Help: "Tickets currently on the active queue.",
		}),
		OverdueTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kds_overdue_tickets",
			Help: "Active tickets past the red threshold.",
		}),
		Items86: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kds_items_86",
			Help: "Menu items currently marked unavailable.",
		}),
	}

	m.registry.MustRegister(
		m.RefreshTotal,
		m.ActionTotal,
		m.SoundTriggers,
		m.ActiveTickets,
		m.OverdueTickets,
		m.Items86,
	)
	return m
}

// Registry returns the registry for promhttp.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAction counts one dispatched action by kind and outcome
// (ok, failed, fallback). Safe to call on a nil receiver so components
// built without metrics need no guards.
func (m *Metrics) ObserveAction(action, outcome string) {
	if m == nil {
		return
	}
	m.ActionTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveRefresh records one refresh cycle outcome.
func (m *Metrics) ObserveRefresh(failedFeeds, totalFeeds int) {
	switch {
	case failedFeeds == 0:
		m.RefreshTotal.WithLabelValues("ok").Inc()
	case failedFeeds < totalFeeds:
		m.RefreshTotal.WithLabelValues("partial").Inc()
	default:
		m.RefreshTotal.WithLabelValues("failed").Inc()
	}
}
