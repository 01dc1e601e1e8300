// Package metrics exports sync engine activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/tether/internal/observable"
	"github.com/roach88/tether/internal/relation"
)

const (
	namespace = "tether"
	subsystem = "sync"
)

// Collector implements relation.Observer on top of Prometheus counters.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are thread-safe).
type Collector struct {
	// Propagations counts change descriptors handled, by relation kind,
	// target property and action.
	Propagations *prometheus.CounterVec

	// Skips counts sync steps that left the other side alone.
	Skips *prometheus.CounterVec

	// Violations counts uniqueness violations surfaced to callers.
	Violations *prometheus.CounterVec
}

var _ relation.Observer = (*Collector)(nil)

// NewCollector creates the sync metrics and registers them with reg.
// Pass a fresh prometheus.NewRegistry() in tests to avoid collisions on the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Propagations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "propagations_total",
				Help:      "Change descriptors handled by relations, by kind, property and action",
			},
			[]string{"kind", "property", "action"},
		),
		Skips: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "skips_total",
				Help:      "Sync steps skipped because the other side was unresolved or not loaded",
			},
			[]string{"kind", "property", "reason"},
		),
		Violations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "violations_total",
				Help:      "Uniqueness violations detected during sync",
			},
			[]string{"kind", "property"},
		),
	}
}

// OnPropagate implements relation.Observer.
func (c *Collector) OnPropagate(kind relation.Kind, property string, action observable.Action) {
	c.Propagations.WithLabelValues(kind.String(), property, action.String()).Inc()
}

// OnSkip implements relation.Observer.
func (c *Collector) OnSkip(kind relation.Kind, property string, reason relation.SkipReason) {
	c.Skips.WithLabelValues(kind.String(), property, string(reason)).Inc()
}

// OnViolation implements relation.Observer.
func (c *Collector) OnViolation(kind relation.Kind, property string, _ error) {
	c.Violations.WithLabelValues(kind.String(), property).Inc()
}

// Dump writes every counter gathered from g as "name{labels} value" lines,
// sorted by name then labels.
func Dump(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
