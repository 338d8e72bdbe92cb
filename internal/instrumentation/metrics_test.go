package instrumentation

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveOracleRequest("ok", 120*time.Millisecond)
	m.ObserveOracleRequest("rate_limited", 5*time.Millisecond)
	m.ObserveOracleRetry("rate_limited")
	m.RecordAccrual("ok", 2)
	m.RecordAccrual("ok", 0)
	m.RecordBatchRun("skipped", 0)
	m.RecordTicksIngested(3)
	m.RecordError("batch", "vault_failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleRetries.WithLabelValues("rate_limited")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AccrualsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExcludedAssets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRuns.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TicksIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("batch", "vault_failed")))
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
