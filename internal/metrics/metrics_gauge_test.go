package metrics_test

import (
	"testing"

	prommodel "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/internal/metrics"
)

func TestGauge_Nil(t *testing.T) {
	var mr *metrics.Registry

	g := mr.GaugeInt64("pending", "help", nil)
	require.Nil(t, g)

	g.Set(5)
	require.Equal(t, int64(0), g.Snapshot(false))
	require.Equal(t, int64(0), g.Peak())
}

func TestGauge_SetAndPeak(t *testing.T) {
	mr := metrics.NewRegistry()
	g := mr.GaugeInt64("test_pending_dirs", "help", nil)

	g.Set(3)
	g.Set(7)
	g.Set(2)

	require.Equal(t, int64(2), g.Snapshot(false))
	require.Equal(t, int64(7), g.Peak())
	require.Equal(t, 2.0,
		mustFindMetric(t, "shellfs_test_pending_dirs", prommodel.MetricType_GAUGE, nil).GetGauge().GetValue())

	require.Equal(t, int64(2), g.Snapshot(true))
	require.Equal(t, int64(0), g.Snapshot(false))
	require.Equal(t, int64(7), g.Peak())
	require.Equal(t, 0.0,
		mustFindMetric(t, "shellfs_test_pending_dirs", prommodel.MetricType_GAUGE, nil).GetGauge().GetValue())
}

func TestGauge_Labels(t *testing.T) {
	mr := metrics.NewRegistry()
	a := mr.GaugeInt64("test_gauge_labeled", "help", map[string]string{"host": "a"})
	b := mr.GaugeInt64("test_gauge_labeled", "help", map[string]string{"host": "b"})

	require.NotSame(t, a, b)
	require.Same(t, a, mr.GaugeInt64("test_gauge_labeled", "help", map[string]string{"host": "a"}))

	a.Set(10)
	b.Set(20)

	require.Equal(t, 10.0,
		mustFindMetric(t, "shellfs_test_gauge_labeled", prommodel.MetricType_GAUGE, map[string]string{"host": "a"}).GetGauge().GetValue())
	require.Equal(t, 20.0,
		mustFindMetric(t, "shellfs_test_gauge_labeled", prommodel.MetricType_GAUGE, map[string]string{"host": "b"}).GetGauge().GetValue())
	require.Equal(t, map[string]int64{
		"test_gauge_labeled[host:a]": 10,
		"test_gauge_labeled[host:b]": 20,
	}, mr.Snapshot(false))
}
