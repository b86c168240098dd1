package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatalytics/backend/internal/domain/billing"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}

func TestUsageRecordRepository_SaveAndCount(t *testing.T) {
	db := setupTestDB(t, &UsageRecordModel{})
	repo := NewUsageRecordRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	otherTenant := uuid.New()
	periodStart, _ := billing.CurrentPeriod(time.Now())

	for i := 0; i < 3; i++ {
		record, err := billing.NewUsageRecord(tenantID, "analyze")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, record))
	}
	record, err := billing.NewUsageRecord(tenantID, "redact")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, record))

	other, err := billing.NewUsageRecord(otherTenant, "analyze")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	t.Run("counts only the tenant's records", func(t *testing.T) {
		count, err := repo.CountByTenantSince(ctx, tenantID, periodStart)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("counts by endpoint", func(t *testing.T) {
		count, err := repo.CountByTenantAndEndpointSince(ctx, tenantID, "analyze", periodStart)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("counts across all tenants", func(t *testing.T) {
		count, err := repo.CountSince(ctx, periodStart)
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})

	t.Run("records outside the window are excluded", func(t *testing.T) {
		count, err := repo.CountByTenantSince(ctx, tenantID, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestUsageRecordRepository_DuplicatesAccumulate(t *testing.T) {
	db := setupTestDB(t, &UsageRecordModel{})
	repo := NewUsageRecordRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	periodStart, _ := billing.CurrentPeriod(time.Now())

	// A retried client request produces a second record with the same
	// attributes but a distinct ID; both must count.
	for i := 0; i < 2; i++ {
		record, err := billing.NewUsageRecord(tenantID, "report")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, record))
	}

	count, err := repo.CountByTenantSince(ctx, tenantID, periodStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUsageRecordRepository_ListByTenant(t *testing.T) {
	db := setupTestDB(t, &UsageRecordModel{})
	repo := NewUsageRecordRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	periodStart, _ := billing.CurrentPeriod(time.Now())

	record, err := billing.NewUsageRecord(tenantID, "analyze")
	require.NoError(t, err)
	record.WithRequestInfo("203.0.113.10", "curl/8.0").
		WithMetadata("model", "gpt-4o")
	require.NoError(t, repo.Save(ctx, record))

	records, err := repo.ListByTenant(ctx, tenantID, periodStart, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "analyze", records[0].Endpoint)
	assert.Equal(t, "203.0.113.10", records[0].IPAddress)
	assert.Equal(t, "gpt-4o", records[0].Metadata["model"])
}
