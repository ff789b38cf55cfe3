package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	prommodel "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func labelsMatch(got []*prommodel.LabelPair, want map[string]string) bool {
	if len(got) != len(want) {
		return false
	}

	for _, lab := range got {
		if v, ok := want[lab.GetName()]; !ok || v != lab.GetValue() {
			return false
		}
	}

	return true
}

// mustFindMetric gathers the default registry and returns the single series matching name, type and labels.
func mustFindMetric(t *testing.T, wantName string, wantType prommodel.MetricType, wantLabels map[string]string) *prommodel.Metric {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != wantName || f.GetType() != wantType {
			continue
		}

		for _, m := range f.GetMetric() {
			if labelsMatch(m.GetLabel(), wantLabels) {
				return m
			}
		}
	}

	require.Failf(t, "metric not found", "%v %v %v", wantName, wantType, wantLabels)

	return nil
}
