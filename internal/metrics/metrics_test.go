package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDayUpsert(t *testing.T) {
	m, _ := NewTestManagerAndRegistry()

	m.RecordDayUpsert(true)
	m.RecordDayUpsert(false)
	m.RecordDayUpsert(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterDayUpserts.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterDayUpserts.WithLabelValues("false")))
}

func TestRecordCleanup(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.RecordCleanup(true, 2, 3, 1, 1, 2)
	m.RecordCleanup(false, 2, 3, 1, 1, 2)
	m.RecordCleanup(false, 0, 0, 0, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterCleanupRuns.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterCleanupRuns.WithLabelValues("false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterDeletedDays.WithLabelValues("false")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterPrescriptionsMoved.WithLabelValues("true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GaugeLastCleanupDuplicates))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
