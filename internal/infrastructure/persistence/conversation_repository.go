package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationModel is the GORM model for conversation transcripts
type ConversationModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Title      string    `gorm:"type:varchar(255)"`
	Capability string    `gorm:"type:varchar(50)"`
	Messages   []byte    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToEntity converts the model to a domain entity
func (m *ConversationModel) ToEntity() *assist.Conversation {
	var messages []assist.Message
	if len(m.Messages) > 0 {
		_ = json.Unmarshal(m.Messages, &messages)
	}

	return &assist.Conversation{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:   m.TenantID,
		Title:      m.Title,
		Capability: m.Capability,
		Messages:   messages,
	}
}

// ConversationModelFromEntity creates a model from a domain entity
func ConversationModelFromEntity(e *assist.Conversation) (*ConversationModel, error) {
	messages, err := json.Marshal(e.Messages)
	if err != nil {
		return nil, err
	}

	return &ConversationModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		Title:      e.Title,
		Capability: e.Capability,
		Messages:   messages,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}, nil
}

// ConversationRepository implements assist.ConversationRepository on GORM
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Save upserts a conversation transcript
func (r *ConversationRepository) Save(ctx context.Context, conv *assist.Conversation) error {
	model, err := ConversationModelFromEntity(conv)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID loads a conversation scoped to its tenant
func (r *ConversationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*assist.Conversation, error) {
	var model ConversationModel
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

// ListByTenant returns a tenant's conversations, newest first
func (r *ConversationRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.Conversation, int64, error) {
	query := r.db.WithContext(ctx).Model(&ConversationModel{}).
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

	var models []ConversationModel
	if err := query.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	convs := make([]*assist.Conversation, len(models))
	for i := range models {
		convs[i] = models[i].ToEntity()
	}
	return convs, total, nil
}

// Delete removes a conversation scoped to its tenant
func (r *ConversationRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&ConversationModel{}, "id = ? AND tenant_id = ?", id, tenantID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ assist.ConversationRepository = (*ConversationRepository)(nil)
