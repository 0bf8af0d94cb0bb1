package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordRemoteCall("batches", "insert", "schema_missing", 20*time.Millisecond)
	m.RecordRemoteCall("batches", "insert", "schema_missing", 10*time.Millisecond)
	m.RecordLocalWrite("batches", "schema_missing")
	m.RecordDowngrade("batches")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("batches", "insert", "schema_missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.localWrites.WithLabelValues("batches", "schema_missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downgrades.WithLabelValues("batches")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.remoteDuration))
}

func TestNew_duplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestMock_isNoop(t *testing.T) {
	m := NewMock()
	assert.NotPanics(t, func() {
		m.RecordRemoteCall("students", "list", "ok", time.Millisecond)
		m.RecordLocalWrite("students", "fallback")
		m.RecordDowngrade("students")
	})

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordDowngrade("students") })
}
