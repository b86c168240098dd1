package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentPeriodBoundaries(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 30, 0, 0, time.UTC)
	start, end := CurrentPeriod(now)

	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	assert.True(t, end.Before(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.After(time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC)))
}

func TestNewUsageRecord(t *testing.T) {
	tenantID := uuid.New()
	rec, err := NewUsageRecord(tenantID, CapabilityAnalyze)
	require.NoError(t, err)

	assert.Equal(t, tenantID, rec.TenantID)
	assert.Equal(t, int64(1), rec.Quantity)
	assert.True(t, rec.IsInPeriod(rec.RecordedAt))
}

func TestNewUsageRecordValidation(t *testing.T) {
	_, err := NewUsageRecord(uuid.Nil, CapabilityAnalyze)
	assert.Error(t, err)

	_, err = NewUsageRecord(uuid.New(), "")
	assert.Error(t, err)
}

func TestUsageRecordsAreDistinct(t *testing.T) {
	// Identical arguments must still produce distinct records (at-least-once)
	tenantID := uuid.New()
	a, err := NewUsageRecord(tenantID, CapabilityRedact)
	require.NoError(t, err)
	b, err := NewUsageRecord(tenantID, CapabilityRedact)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}
