package assist

import (
	"context"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/shared"
)

// DocumentStatus tracks a document through its lifecycle
type DocumentStatus string

const (
	DocumentUploaded  DocumentStatus = "uploaded"
	DocumentProcessed DocumentStatus = "processed"
	DocumentFailed    DocumentStatus = "failed"
)

// Document is an uploaded file a tenant can ask questions about. The raw
// bytes live in object storage under StorageKey; only extracted text is
// kept in the database.
type Document struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	FileName      string
	ContentType   string
	SizeBytes     int64
	StorageKey    string
	Status        DocumentStatus
	ExtractedText string
	FailureReason string
}

// NewDocument registers an uploaded document
func NewDocument(tenantID uuid.UUID, fileName, contentType, storageKey string, sizeBytes int64) (*Document, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILENAME", "File name cannot be empty")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key cannot be empty")
	}

	return &Document{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		StorageKey:  storageKey,
		Status:      DocumentUploaded,
	}, nil
}

// MarkProcessed stores the extracted text and completes processing
func (d *Document) MarkProcessed(text string) {
	d.ExtractedText = text
	d.Status = DocumentProcessed
	d.FailureReason = ""
	d.Touch()
}

// MarkFailed records a processing failure
func (d *Document) MarkFailed(reason string) {
	d.Status = DocumentFailed
	d.FailureReason = reason
	d.Touch()
}

// IsProcessed reports whether the document can be queried
func (d *Document) IsProcessed() bool {
	return d.Status == DocumentProcessed
}

// DocumentRepository persists documents
type DocumentRepository interface {
	Save(ctx context.Context, doc *Document) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Document, int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
