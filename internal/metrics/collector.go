package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector wraps a Prometheus registry and provides metric registration helpers
type Collector struct {
	registry *prometheus.Registry
}

// NewCollector creates a new metrics collector with an empty registry
func NewCollector() *Collector {
	return &Collector{
		registry: prometheus.NewRegistry(),
	}
}

// RegisterRuntime adds the Go runtime and process collectors
func (c *Collector) RegisterRuntime() {
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RegisterCounter registers a counter metric with the collector
func (c *Collector) RegisterCounter(name, help string, labels []string) *prometheus.CounterVec {
	return promauto.With(c.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

// RegisterGauge registers a gauge metric with the collector
func (c *Collector) RegisterGauge(name, help string, labels []string) *prometheus.GaugeVec {
	return promauto.With(c.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

// RegisterHistogram registers a histogram metric. nil buckets means prometheus.DefBuckets.
func (c *Collector) RegisterHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: buckets,
	}
	if buckets == nil {
		opts.Buckets = prometheus.DefBuckets
	}
	return promauto.With(c.registry).NewHistogramVec(opts, labels)
}

// GetRegistry returns the Prometheus registry
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
