package assist

import (
	"context"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"go.uber.org/zap"
)

// ConversationService manages saved assist transcripts
type ConversationService struct {
	convRepo assist.ConversationRepository
	logger   *zap.Logger
}

// NewConversationService creates a new ConversationService
func NewConversationService(convRepo assist.ConversationRepository, logger *zap.Logger) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{convRepo: convRepo, logger: logger}
}

// SaveInput describes a transcript to save or replace
type SaveInput struct {
	TenantID   uuid.UUID
	ID         *uuid.UUID // nil creates a new conversation
	Title      string
	Capability string
	Messages   []assist.Message
}

// Save creates a conversation or replaces an existing transcript wholesale
func (s *ConversationService) Save(ctx context.Context, input SaveInput) (*assist.Conversation, error) {
	if input.ID != nil {
		conv, err := s.convRepo.FindByID(ctx, input.TenantID, *input.ID)
		if err != nil {
			return nil, err
		}
		conv.Replace(input.Title, input.Messages)
		if err := s.convRepo.Save(ctx, conv); err != nil {
			return nil, err
		}
		return conv, nil
	}

	conv, err := assist.NewConversation(input.TenantID, input.Title, input.Capability, input.Messages)
	if err != nil {
		return nil, err
	}
	if err := s.convRepo.Save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns a tenant's conversation
func (s *ConversationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*assist.Conversation, error) {
	return s.convRepo.FindByID(ctx, tenantID, id)
}

// List returns a page of a tenant's conversations
func (s *ConversationService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.Conversation, int64, error) {
	return s.convRepo.ListByTenant(ctx, tenantID, limit, offset)
}

// Delete removes a conversation
func (s *ConversationService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.convRepo.Delete(ctx, tenantID, id)
}
