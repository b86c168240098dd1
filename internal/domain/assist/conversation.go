package assist

import (
	"context"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/shared"
)

// Message is a single turn of a saved conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a saved transcript of an assist session, scoped to a
// tenant. Transcripts are replaced wholesale on save.
type Conversation struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	Title      string
	Capability string
	Messages   []Message
}

// NewConversation creates a conversation transcript
func NewConversation(tenantID uuid.UUID, title, capability string, messages []Message) (*Conversation, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if len(messages) == 0 {
		return nil, shared.NewDomainError("EMPTY_CONVERSATION", "Conversation must contain at least one message")
	}
	if title == "" {
		title = firstLine(messages[0].Content, 80)
	}

	return &Conversation{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Title:      title,
		Capability: capability,
		Messages:   messages,
	}, nil
}

// Replace swaps the transcript content
func (c *Conversation) Replace(title string, messages []Message) {
	if title != "" {
		c.Title = title
	}
	c.Messages = messages
	c.Touch()
}

func firstLine(s string, max int) string {
	for i, r := range s {
		if r == '\n' || i >= max {
			return s[:i]
		}
	}
	return s
}

// ConversationRepository persists conversation transcripts
type ConversationRepository interface {
	Save(ctx context.Context, conv *Conversation) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Conversation, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Conversation, int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
