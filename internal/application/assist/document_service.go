package assist

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/llm"
	"github.com/threatalytics/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DocumentStorage is the object store uploaded documents live in
type DocumentStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	Download(ctx context.Context, storageKey string) ([]byte, error)
	Delete(ctx context.Context, storageKey string) error
	PresignDownload(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// textContentTypes are the upload types whose bytes are usable as extracted
// text directly. Anything else needs an external extraction step.
var textContentTypes = map[string]bool{
	"text/plain":         true,
	"text/markdown":      true,
	"text/csv":           true,
	"application/json":   true,
	"text/html":          true,
	"application/rtf":    false,
	"application/pdf":    false,
	"application/msword": false,
}

// DocumentService manages uploaded documents and the Q&A modes that run
// against them.
type DocumentService struct {
	docRepo      assist.DocumentRepository
	storage      DocumentStorage
	client       llm.Client
	prompts      *config.PromptsConfig
	storageCfg   *config.StorageConfig
	activityRepo assist.ActivityRepository
	metrics      *telemetry.ServiceMetrics
	logger       *zap.Logger
}

// DocumentServiceConfig bundles DocumentService dependencies
type DocumentServiceConfig struct {
	DocRepo      assist.DocumentRepository
	Storage      DocumentStorage
	Client       llm.Client
	Prompts      *config.PromptsConfig
	StorageCfg   *config.StorageConfig
	ActivityRepo assist.ActivityRepository
	Metrics      *telemetry.ServiceMetrics
	Logger       *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentServiceConfig) *DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		docRepo:      cfg.DocRepo,
		storage:      cfg.Storage,
		client:       cfg.Client,
		prompts:      cfg.Prompts,
		storageCfg:   cfg.StorageCfg,
		activityRepo: cfg.ActivityRepo,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
}

// UploadInput describes an incoming document upload
type UploadInput struct {
	TenantID    uuid.UUID
	FileName    string
	ContentType string
	Data        []byte
}

// Upload stores the raw bytes and registers the document. Text-like uploads
// are processed inline; anything else stays in "uploaded" until Process is
// called for it.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*assist.Document, error) {
	if len(input.Data) == 0 {
		return nil, shared.NewDomainError("EMPTY_DOCUMENT", "Document cannot be empty")
	}
	if max := s.storageCfg.MaxUploadBytes; max > 0 && int64(len(input.Data)) > max {
		return nil, shared.NewDomainError("DOCUMENT_TOO_LARGE",
			fmt.Sprintf("Document exceeds the %d byte upload limit", max))
	}

	fileName := path.Base(strings.TrimSpace(input.FileName))
	storageKey := fmt.Sprintf("tenants/%s/documents/%s/%s", input.TenantID, uuid.NewString(), fileName)

	if err := s.storage.Upload(ctx, storageKey, input.Data, input.ContentType); err != nil {
		return nil, fmt.Errorf("uploading document: %w", err)
	}

	doc, err := assist.NewDocument(input.TenantID, fileName, input.ContentType, storageKey, int64(len(input.Data)))
	if err != nil {
		return nil, err
	}

	if textContentTypes[normalizeContentType(input.ContentType)] {
		doc.MarkProcessed(string(input.Data))
	}

	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Document uploaded",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.Int("size_bytes", len(input.Data)))
	return doc, nil
}

// Process extracts text from a previously uploaded document so it can be
// queried. Documents whose content type has no extraction path are marked
// failed.
func (s *DocumentService) Process(ctx context.Context, tenantID, docID uuid.UUID) (*assist.Document, error) {
	doc, err := s.docRepo.FindByID(ctx, tenantID, docID)
	if err != nil {
		return nil, err
	}
	if doc.IsProcessed() {
		return doc, nil
	}

	data, err := s.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("downloading document: %w", err)
	}

	if textContentTypes[normalizeContentType(doc.ContentType)] {
		doc.MarkProcessed(string(data))
	} else {
		doc.MarkFailed("unsupported content type: " + doc.ContentType)
	}

	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AskInput describes a document Q&A request
type AskInput struct {
	TenantID   uuid.UUID
	DocumentID uuid.UUID
	Mode       string
	Question   string
}

// Ask runs one of the configured Q&A modes against a processed document
func (s *DocumentService) Ask(ctx context.Context, input AskInput) (*GenerationResult, error) {
	prompt, ok := s.prompts.AskModes[input.Mode]
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_MODE",
			fmt.Sprintf("Unknown document mode %q", input.Mode))
	}

	doc, err := s.docRepo.FindByID(ctx, input.TenantID, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsProcessed() {
		return nil, shared.NewDomainError("DOCUMENT_NOT_PROCESSED",
			"Document has not been processed yet")
	}

	messages := []llm.Message{
		{Role: "user", Content: "Document:\n\n" + doc.ExtractedText},
	}
	if q := strings.TrimSpace(input.Question); q != "" {
		messages = append(messages, llm.Message{Role: "user", Content: q})
	}

	result, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      prompt.System,
		Messages:    messages,
		MaxTokens:   prompt.MaxTokens,
		Temperature: prompt.Temperature,
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration(ctx, "ask", result.Model, result.PromptTokens, result.CompletionTokens)
	}
	if s.activityRepo != nil {
		summary := input.Mode + ": " + doc.FileName
		if entry, err := assist.NewActivityEntry(input.TenantID, "ask", summary); err == nil {
			if err := s.activityRepo.Save(ctx, entry); err != nil {
				s.logger.Warn("Failed to record activity entry", zap.Error(err))
			}
		}
	}

	return &GenerationResult{
		Content:          result.Content,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}, nil
}

// Get returns a tenant's document
func (s *DocumentService) Get(ctx context.Context, tenantID, docID uuid.UUID) (*assist.Document, error) {
	return s.docRepo.FindByID(ctx, tenantID, docID)
}

// List returns a page of a tenant's documents
func (s *DocumentService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.Document, int64, error) {
	return s.docRepo.ListByTenant(ctx, tenantID, limit, offset)
}

// DownloadURL returns a time-limited link to the stored bytes
func (s *DocumentService) DownloadURL(ctx context.Context, tenantID, docID uuid.UUID) (string, time.Time, error) {
	doc, err := s.docRepo.FindByID(ctx, tenantID, docID)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.storage.PresignDownload(ctx, doc.StorageKey, 15*time.Minute)
}

// Delete removes the document and its stored bytes
func (s *DocumentService) Delete(ctx context.Context, tenantID, docID uuid.UUID) error {
	doc, err := s.docRepo.FindByID(ctx, tenantID, docID)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		// The database row wins; orphaned objects are cleaned up out of band
		s.logger.Warn("Failed to delete stored object",
			zap.String("storage_key", doc.StorageKey), zap.Error(err))
	}
	return s.docRepo.Delete(ctx, tenantID, docID)
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
