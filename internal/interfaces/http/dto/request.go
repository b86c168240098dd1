package dto

// Auth requests

// SignupRequest registers a new tenant
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=200"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest authenticates a tenant
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest revokes the session's tokens
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Assist requests

// GenerateRequest is the body of the prompt-driven capabilities
type GenerateRequest struct {
	Input string `json:"input" binding:"required,max=60000"`
}

// AskRequest queries a processed document
type AskRequest struct {
	DocumentID string `json:"document_id" binding:"required,uuid"`
	Mode       string `json:"mode" binding:"required,max=50"`
	Question   string `json:"question" binding:"max=4000"`
}

// Conversations

// MessageDTO is one turn of a transcript
type MessageDTO struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required"`
}

// SaveConversationRequest creates or replaces a transcript
type SaveConversationRequest struct {
	ID         string       `json:"id" binding:"omitempty,uuid"`
	Title      string       `json:"title" binding:"max=200"`
	Capability string       `json:"capability" binding:"max=50"`
	Messages   []MessageDTO `json:"messages" binding:"required,min=1,dive"`
}

// Feedback

// FeedbackRequest rates a generated response
type FeedbackRequest struct {
	ConversationID string `json:"conversation_id" binding:"omitempty,uuid"`
	Capability     string `json:"capability" binding:"max=50"`
	Helpful        *bool  `json:"helpful" binding:"required"`
	Comment        string `json:"comment" binding:"max=2000"`
}

// Activity

// UpdateNoteRequest replaces the note on an activity entry
type UpdateNoteRequest struct {
	Note string `json:"note" binding:"max=2000"`
}

// Billing

// CheckoutRequest starts a Stripe checkout for a paid plan
type CheckoutRequest struct {
	PlanID string `json:"plan_id" binding:"required,oneof=starter professional enterprise"`
}

// TrackUsageRequest appends an explicit usage event
type TrackUsageRequest struct {
	Endpoint string         `json:"endpoint" binding:"required,oneof=analyze redact report drill ask"`
	Metadata map[string]any `json:"metadata" binding:"omitempty"`
}
