// Package metrics exposes normalizer and provisioning activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/core-tools/hsu-punit/pkg/provisioning"
)

const namespace = "punit"

// Collector owns its own registry so several collectors can coexist, e.g. in tests
type Collector struct {
	registry      *prometheus.Registry
	parseWarnings *prometheus.CounterVec
	updates       *prometheus.CounterVec
	refreshes     prometheus.Counter
	units         prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		parseWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Configuration properties skipped because of an unsupported value shape.",
		}, []string{"key"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Configuration updates by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_refresh_requests_total",
			Help:      "Provisioned configurations that asked for a bundle refresh.",
		}),
		units: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "units",
			Help:      "Currently provisioned persistence units.",
		}),
	}
	c.registry.MustRegister(c.parseWarnings, c.updates, c.refreshes, c.units)
	return c
}

// ObserveWarning implements punit.WarningObserver
func (c *Collector) ObserveWarning(key string) {
	c.parseWarnings.WithLabelValues(key).Inc()
}

// OnEvent implements provisioning.Listener
func (c *Collector) OnEvent(event provisioning.Event) {
	c.updates.WithLabelValues(string(event.Type)).Inc()
	if event.Type == provisioning.EventProvisioned && event.RefreshBundle {
		c.refreshes.Inc()
	}
	c.units.Set(float64(event.Units))
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
