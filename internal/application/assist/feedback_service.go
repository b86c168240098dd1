package assist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"go.uber.org/zap"
)

// FeedbackService records ratings on generated responses
type FeedbackService struct {
	feedbackRepo assist.FeedbackRepository
	logger       *zap.Logger
}

// NewFeedbackService creates a new FeedbackService
func NewFeedbackService(feedbackRepo assist.FeedbackRepository, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{feedbackRepo: feedbackRepo, logger: logger}
}

// FeedbackInput describes a submitted rating
type FeedbackInput struct {
	TenantID       uuid.UUID
	ConversationID *uuid.UUID
	Capability     string
	Helpful        bool
	Comment        string
}

// Submit records a rating
func (s *FeedbackService) Submit(ctx context.Context, input FeedbackInput) (*assist.Feedback, error) {
	fb, err := assist.NewFeedback(input.TenantID, input.Capability, input.Helpful, input.Comment)
	if err != nil {
		return nil, err
	}
	if input.ConversationID != nil {
		fb.WithConversation(*input.ConversationID)
	}
	if err := s.feedbackRepo.Save(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

// TenantStats aggregates a tenant's ratings over the trailing window
func (s *FeedbackService) TenantStats(ctx context.Context, tenantID uuid.UUID, window time.Duration) (assist.FeedbackStats, error) {
	return s.feedbackRepo.StatsByTenantSince(ctx, tenantID, time.Now().Add(-window))
}
