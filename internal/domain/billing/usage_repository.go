package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UsageRecordRepository persists immutable usage events. There is no update
// or delete path; the store is append-only and read in aggregate.
type UsageRecordRepository interface {
	Save(ctx context.Context, record *UsageRecord) error
	CountByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
	CountByTenantAndEndpointSince(ctx context.Context, tenantID uuid.UUID, endpoint string, since time.Time) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]*UsageRecord, error)
}
