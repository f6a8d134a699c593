// Package metrics exports cart sync metrics for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/bakery-storefront/internal/core/service"
)

const (
	MetricSyncTotal           = "storefront_cart_sync_total"
	MetricSyncDurationSeconds = "storefront_cart_sync_duration_seconds"
	MetricCartItems           = "storefront_cart_items"
	MetricCartVersion         = "storefront_cart_version"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultStale   = "stale"
)

// SyncMetrics records gateway calls made by the sync controller and the size
// of the local cart. It uses its own registry.
type SyncMetrics struct {
	registry     *prometheus.Registry
	syncTotal    *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	cartItems    prometheus.Gauge
	cartVersion  prometheus.Gauge
}

func New() *SyncMetrics {
	registry := prometheus.NewRegistry()
	m := &SyncMetrics{
		registry: registry,
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSyncTotal,
			Help: "Cart gateway calls by kind and result.",
		}, []string{"kind", "result"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricSyncDurationSeconds,
			Help:    "Cart gateway call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		cartItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCartItems,
			Help: "Total quantity held in the local cart.",
		}),
		cartVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCartVersion,
			Help: "Version of the local cart.",
		}),
	}
	registry.MustRegister(
		m.syncTotal,
		m.syncDuration,
		m.cartItems,
		m.cartVersion,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSync implements service.SyncObserver.
func (m *SyncMetrics) ObserveSync(ev service.SyncEvent) {
	result := ResultSuccess
	switch {
	case ev.Stale:
		result = ResultStale
	case ev.Err != nil:
		result = ResultError
	}
	m.syncTotal.WithLabelValues(string(ev.Kind), result).Inc()
	m.syncDuration.WithLabelValues(string(ev.Kind)).Observe(ev.Duration.Seconds())
}

// ObserveCart is a CartStore subscriber.
func (m *SyncMetrics) ObserveCart(change service.CartChange) {
	m.cartItems.Set(float64(change.Items.ItemCount()))
	m.cartVersion.Set(float64(change.Version))
}

func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
