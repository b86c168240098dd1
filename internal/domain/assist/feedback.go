package assist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/shared"
)

// Feedback is a thumbs up/down rating on a generated response
type Feedback struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	ConversationID *uuid.UUID
	Capability     string
	Helpful        bool
	Comment        string
}

// NewFeedback creates a feedback entry
func NewFeedback(tenantID uuid.UUID, capability string, helpful bool, comment string) (*Feedback, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	return &Feedback{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Capability: capability,
		Helpful:    helpful,
		Comment:    comment,
	}, nil
}

// WithConversation links the feedback to a saved conversation
func (f *Feedback) WithConversation(conversationID uuid.UUID) *Feedback {
	f.ConversationID = &conversationID
	return f
}

// FeedbackStats aggregates ratings over a window
type FeedbackStats struct {
	Total       int64   `json:"total"`
	Helpful     int64   `json:"helpful"`
	HelpfulRate float64 `json:"helpful_rate"`
}

// Rate computes the helpful rate, zero when no feedback exists
func (s *FeedbackStats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Helpful) / float64(s.Total)
}

// FeedbackRepository persists feedback entries
type FeedbackRepository interface {
	Save(ctx context.Context, fb *Feedback) error
	StatsSince(ctx context.Context, since time.Time) (FeedbackStats, error)
	StatsByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (FeedbackStats, error)
}
