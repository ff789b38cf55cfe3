package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	prometheusCounterSuffix = "_total"
	prometheusPrefix        = "shellfs_"
)

// Prometheus collectors are process-wide, so registries created for separate sessions share them.
//
//nolint:gochecknoglobals
var (
	promCounters = vecCache[*prometheus.CounterVec]{vecs: map[string]*prometheus.CounterVec{}}
	promGauges   = vecCache[*prometheus.GaugeVec]{vecs: map[string]*prometheus.GaugeVec{}}
)

type vecCache[V any] struct {
	mu   sync.Mutex
	vecs map[string]V
}

func (c *vecCache[V]) get(name string, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.vecs[name]
	if !ok {
		v = create()
		c.vecs[name] = v
	}

	return v
}

func labelValues(labels map[string]string) []string {
	var values []string

	for _, k := range sortedLabelNames(labels) {
		values = append(values, labels[k])
	}

	return values
}

func getPrometheusCounter(opts prometheus.CounterOpts, labels map[string]string) prometheus.Counter {
	vec := promCounters.get(opts.Name, func() *prometheus.CounterVec {
		return promauto.NewCounterVec(opts, sortedLabelNames(labels))
	})

	return vec.WithLabelValues(labelValues(labels)...)
}

func getPrometheusGauge(opts prometheus.GaugeOpts, labels map[string]string) prometheus.Gauge {
	vec := promGauges.get(opts.Name, func() *prometheus.GaugeVec {
		return promauto.NewGaugeVec(opts, sortedLabelNames(labels))
	})

	return vec.WithLabelValues(labelValues(labels)...)
}
