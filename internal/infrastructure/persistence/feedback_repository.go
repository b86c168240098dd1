package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// FeedbackModel is the GORM model for response feedback
type FeedbackModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	ConversationID *uuid.UUID `gorm:"type:uuid"`
	Capability     string     `gorm:"type:varchar(50)"`
	Helpful        bool       `gorm:"not null"`
	Comment        string     `gorm:"type:text"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (FeedbackModel) TableName() string {
	return "feedback"
}

// ToEntity converts the model to a domain entity
func (m *FeedbackModel) ToEntity() *assist.Feedback {
	return &assist.Feedback{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:       m.TenantID,
		ConversationID: m.ConversationID,
		Capability:     m.Capability,
		Helpful:        m.Helpful,
		Comment:        m.Comment,
	}
}

// FeedbackModelFromEntity creates a model from a domain entity
func FeedbackModelFromEntity(e *assist.Feedback) *FeedbackModel {
	return &FeedbackModel{
		ID:             e.ID,
		TenantID:       e.TenantID,
		ConversationID: e.ConversationID,
		Capability:     e.Capability,
		Helpful:        e.Helpful,
		Comment:        e.Comment,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// FeedbackRepository implements assist.FeedbackRepository on GORM
type FeedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Save appends a feedback entry
func (r *FeedbackRepository) Save(ctx context.Context, fb *assist.Feedback) error {
	model := FeedbackModelFromEntity(fb)
	return r.db.WithContext(ctx).Create(model).Error
}

// StatsSince aggregates feedback across all tenants
func (r *FeedbackRepository) StatsSince(ctx context.Context, since time.Time) (assist.FeedbackStats, error) {
	return r.stats(ctx, r.db.WithContext(ctx).Model(&FeedbackModel{}).
		Where("created_at >= ?", since))
}

// StatsByTenantSince aggregates one tenant's feedback
func (r *FeedbackRepository) StatsByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (assist.FeedbackStats, error) {
	return r.stats(ctx, r.db.WithContext(ctx).Model(&FeedbackModel{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since))
}

func (r *FeedbackRepository) stats(_ context.Context, query *gorm.DB) (assist.FeedbackStats, error) {
	var row struct {
		Total   int64
		Helpful int64
	}
	err := query.
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN helpful THEN 1 ELSE 0 END), 0) AS helpful").
		Scan(&row).Error
	if err != nil {
		return assist.FeedbackStats{}, err
	}

	stats := assist.FeedbackStats{Total: row.Total, Helpful: row.Helpful}
	stats.HelpfulRate = stats.Rate()
	return stats, nil
}

var _ assist.FeedbackRepository = (*FeedbackRepository)(nil)
