package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityEntryModel is the GORM model for activity log entries
type ActivityEntryModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Capability string    `gorm:"type:varchar(50);not null"`
	Summary    string    `gorm:"type:varchar(512)"`
	Note       string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ActivityEntryModel) TableName() string {
	return "activity_entries"
}

// ToEntity converts the model to a domain entity
func (m *ActivityEntryModel) ToEntity() *assist.ActivityEntry {
	return &assist.ActivityEntry{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:   m.TenantID,
		Capability: m.Capability,
		Summary:    m.Summary,
		Note:       m.Note,
	}
}

// ActivityEntryModelFromEntity creates a model from a domain entity
func ActivityEntryModelFromEntity(e *assist.ActivityEntry) *ActivityEntryModel {
	return &ActivityEntryModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		Capability: e.Capability,
		Summary:    e.Summary,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// ActivityRepository implements assist.ActivityRepository on GORM
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Save upserts an activity entry (notes are editable after the fact)
func (r *ActivityRepository) Save(ctx context.Context, entry *assist.ActivityEntry) error {
	model := ActivityEntryModelFromEntity(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID loads an activity entry scoped to its tenant
func (r *ActivityRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*assist.ActivityEntry, error) {
	var model ActivityEntryModel
	err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ListByTenant returns a tenant's activity log, newest first
func (r *ActivityRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.ActivityEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&ActivityEntryModel{}).
		Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var models []ActivityEntryModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*assist.ActivityEntry, len(models))
	for i := range models {
		entries[i] = models[i].ToEntity()
	}
	return entries, total, nil
}

var _ assist.ActivityRepository = (*ActivityRepository)(nil)
