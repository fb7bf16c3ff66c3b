package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberkv/emberkv/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{ShardCount: 2, PoolBytes: 2 * 4 << 20, Now: func() int64 { return 0 }})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestCollectReflectsStoreState(t *testing.T) {
	s := newTestStore(t)
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(s, reg)

	require.NoError(t, s.Set([]byte("k"), []byte("v"), 0, 0))
	_, _, ok := s.Get([]byte("k"))
	assert.True(t, ok)
	_, _, ok = s.Get([]byte("missing"))
	assert.False(t, ok)

	m.Collect()

	assert.Equal(t, float64(1), gatherValue(t, reg, "emberkv_curr_items"))
	assert.Equal(t, float64(1), gatherValue(t, reg, "emberkv_get_hits_total"))
	assert.Equal(t, float64(1), gatherValue(t, reg, "emberkv_get_misses_total"))
}

func TestCollectCountersDoNotDecreaseAcrossFlush(t *testing.T) {
	s := newTestStore(t)
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(s, reg)

	require.NoError(t, s.Set([]byte("k"), []byte("v"), 0, 0))
	_, _, _ = s.Get([]byte("k"))
	m.Collect()
	before := gatherValue(t, reg, "emberkv_get_hits_total")
	require.Equal(t, float64(1), before)

	s.Flush()
	m.Collect()
	after := gatherValue(t, reg, "emberkv_get_hits_total")
	assert.GreaterOrEqual(t, after, before)
}
