package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Gauge tracks an instantaneous level, such as the number of directories waiting to be listed.
type Gauge struct {
	current atomic.Int64
	peak    atomic.Int64

	prom prometheus.Gauge
}

// Set records the current level. Safe to call on a nil gauge.
func (g *Gauge) Set(v int64) {
	if g == nil {
		return
	}

	g.current.Store(v)
	g.prom.Set(float64(v))

	for {
		p := g.peak.Load()
		if v <= p || g.peak.CompareAndSwap(p, v) {
			return
		}
	}
}

// Peak returns the highest level recorded since the gauge was created.
func (g *Gauge) Peak() int64 {
	if g == nil {
		return 0
	}

	return g.peak.Load()
}

// Snapshot returns the current level, optionally resetting it to zero.
func (g *Gauge) Snapshot(reset bool) int64 {
	if g == nil {
		return 0
	}

	if !reset {
		return g.current.Load()
	}

	g.prom.Set(0)

	return g.current.Swap(0)
}

// GaugeInt64 returns the gauge registered under name and labels, creating it on first use.
func (r *Registry) GaugeInt64(name, help string, labels map[string]string) *Gauge {
	if r == nil {
		return nil
	}

	key := name + labelsSuffix(labels)

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.allGauges[key]; ok {
		return g
	}

	g := &Gauge{
		prom: getPrometheusGauge(prometheus.GaugeOpts{
			Name: prometheusPrefix + name,
			Help: help,
		}, labels),
	}

	r.allGauges[key] = g

	return g
}
