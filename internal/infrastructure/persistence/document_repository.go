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

// DocumentModel is the GORM model for uploaded documents
type DocumentModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	FileName      string    `gorm:"type:varchar(255);not null"`
	ContentType   string    `gorm:"type:varchar(100)"`
	SizeBytes     int64     `gorm:"not null"`
	StorageKey    string    `gorm:"type:varchar(512);not null"`
	Status        string    `gorm:"type:varchar(20);not null"`
	ExtractedText string    `gorm:"type:text"`
	FailureReason string    `gorm:"type:varchar(512)"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (DocumentModel) TableName() string {
	return "documents"
}

// ToEntity converts the model to a domain entity
func (m *DocumentModel) ToEntity() *assist.Document {
	return &assist.Document{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:      m.TenantID,
		FileName:      m.FileName,
		ContentType:   m.ContentType,
		SizeBytes:     m.SizeBytes,
		StorageKey:    m.StorageKey,
		Status:        assist.DocumentStatus(m.Status),
		ExtractedText: m.ExtractedText,
		FailureReason: m.FailureReason,
	}
}

// DocumentModelFromEntity creates a model from a domain entity
func DocumentModelFromEntity(e *assist.Document) *DocumentModel {
	return &DocumentModel{
		ID:            e.ID,
		TenantID:      e.TenantID,
		FileName:      e.FileName,
		ContentType:   e.ContentType,
		SizeBytes:     e.SizeBytes,
		StorageKey:    e.StorageKey,
		Status:        string(e.Status),
		ExtractedText: e.ExtractedText,
		FailureReason: e.FailureReason,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// DocumentRepository implements assist.DocumentRepository on GORM
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Save upserts a document
func (r *DocumentRepository) Save(ctx context.Context, doc *assist.Document) error {
	model := DocumentModelFromEntity(doc)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID loads a document scoped to its tenant
func (r *DocumentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*assist.Document, error) {
	var model DocumentModel
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

// ListByTenant returns a tenant's documents, newest first
func (r *DocumentRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&DocumentModel{}).
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

	var models []DocumentModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	docs := make([]*assist.Document, len(models))
	for i := range models {
		docs[i] = models[i].ToEntity()
	}
	return docs, total, nil
}

// Delete removes a document scoped to its tenant
func (r *DocumentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&DocumentModel{}, "id = ? AND tenant_id = ?", id, tenantID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ assist.DocumentRepository = (*DocumentRepository)(nil)
