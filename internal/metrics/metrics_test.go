package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveQuery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveQuery("ledger", time.Now(), nil)
	m.ObserveQuery("ledger", time.Now(), nil)
	m.ObserveQuery("ledger", time.Now(), errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.queries.WithLabelValues("ledger", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.queries.WithLabelValues("ledger", "error")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestWarningsAndUnbalanced(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Warnings("account_not_found", 3)
	m.Warnings("account_not_found", 0)
	m.Unbalanced()
	m.CacheResult("hit")

	assert.InDelta(t, 3, testutil.ToFloat64(m.warnings.WithLabelValues("account_not_found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.unbalanced), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cache.WithLabelValues("hit")), 0)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery("cashbook", time.Now(), nil)
		m.Warnings("account_not_found", 1)
		m.Unbalanced()
		m.CacheResult("miss")
	})
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) }, "registering twice on one registry should panic")
}
