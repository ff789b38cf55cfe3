// Package metrics provides counters and gauges for shellfs operations, exported to Prometheus.
package metrics

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// Registry groups together all metrics emitted by a session.
type Registry struct {
	mu          sync.Mutex
	allCounters map[string]*Counter
	allGauges   map[string]*Gauge
}

// NewRegistry returns new metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		allCounters: map[string]*Counter{},
		allGauges:   map[string]*Gauge{},
	}
}

// Snapshot captures the state of all counters and gauges, keyed by name and labels.
func (r *Registry) Snapshot(reset bool) map[string]int64 {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := map[string]int64{}

	for k, c := range r.allCounters {
		s[k] = c.Snapshot(reset)
	}

	for k, g := range r.allGauges {
		s[k] = g.Snapshot(reset)
	}

	return s
}

func sortedLabelNames(labels map[string]string) []string {
	keys := maps.Keys(labels)
	sort.Strings(keys)

	return keys
}

func labelsSuffix(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	var parts []string

	for _, k := range sortedLabelNames(labels) {
		parts = append(parts, k+":"+labels[k])
	}

	return "[" + strings.Join(parts, ";") + "]"
}
