package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// UsageRecordModel is the GORM model for usage records. The table is
// append-only; there is no update path.
type UsageRecordModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_usage_tenant_recorded"`
	Endpoint    string     `gorm:"type:varchar(50);not null;index"`
	Quantity    int64      `gorm:"not null;default:1"`
	RecordedAt  time.Time  `gorm:"not null;index:idx_usage_tenant_recorded"`
	PeriodStart time.Time  `gorm:"not null"`
	PeriodEnd   time.Time  `gorm:"not null"`
	UserID      *uuid.UUID `gorm:"type:uuid"`
	IPAddress   string     `gorm:"type:varchar(45)"`
	UserAgent   string     `gorm:"type:varchar(512)"`
	Metadata    []byte     `gorm:"type:jsonb"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UsageRecordModel) TableName() string {
	return "usage_records"
}

// ToEntity converts the model to a domain entity
func (m *UsageRecordModel) ToEntity() *billing.UsageRecord {
	var metadata billing.Metadata
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}

	return &billing.UsageRecord{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:    m.TenantID,
		Endpoint:    m.Endpoint,
		Quantity:    m.Quantity,
		RecordedAt:  m.RecordedAt,
		PeriodStart: m.PeriodStart,
		PeriodEnd:   m.PeriodEnd,
		UserID:      m.UserID,
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		Metadata:    metadata,
	}
}

// UsageRecordModelFromEntity creates a model from a domain entity
func UsageRecordModelFromEntity(e *billing.UsageRecord) *UsageRecordModel {
	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata, _ = json.Marshal(e.Metadata)
	}

	return &UsageRecordModel{
		ID:          e.ID,
		TenantID:    e.TenantID,
		Endpoint:    e.Endpoint,
		Quantity:    e.Quantity,
		RecordedAt:  e.RecordedAt,
		PeriodStart: e.PeriodStart,
		PeriodEnd:   e.PeriodEnd,
		UserID:      e.UserID,
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		Metadata:    metadata,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// UsageRecordRepository implements billing.UsageRecordRepository on GORM
type UsageRecordRepository struct {
	db *gorm.DB
}

// NewUsageRecordRepository creates a new usage record repository
func NewUsageRecordRepository(db *gorm.DB) *UsageRecordRepository {
	return &UsageRecordRepository{db: db}
}

// Save inserts a usage record. Records are never updated, so a plain insert
// is used instead of an upsert.
func (r *UsageRecordRepository) Save(ctx context.Context, record *billing.UsageRecord) error {
	model := UsageRecordModelFromEntity(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// CountByTenantSince counts a tenant's usage recorded at or after since
func (r *UsageRecordRepository) CountByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&UsageRecordModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("tenant_id = ? AND recorded_at >= ?", tenantID, since).
		Scan(&total).Error
	return total, err
}

// CountByTenantAndEndpointSince counts a tenant's usage for one endpoint
func (r *UsageRecordRepository) CountByTenantAndEndpointSince(ctx context.Context, tenantID uuid.UUID, endpoint string, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&UsageRecordModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("tenant_id = ? AND endpoint = ? AND recorded_at >= ?", tenantID, endpoint, since).
		Scan(&total).Error
	return total, err
}

// CountSince counts usage across all tenants recorded at or after since
func (r *UsageRecordRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&UsageRecordModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("recorded_at >= ?", since).
		Scan(&total).Error
	return total, err
}

// ListByTenant returns a tenant's most recent usage records
func (r *UsageRecordRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]*billing.UsageRecord, error) {
	var models []UsageRecordModel
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND recorded_at >= ?", tenantID, since).
		Order("recorded_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]*billing.UsageRecord, len(models))
	for i := range models {
		records[i] = models[i].ToEntity()
	}
	return records, nil
}

var _ billing.UsageRecordRepository = (*UsageRecordRepository)(nil)
