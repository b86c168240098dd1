package dto

import (
	"time"

	"github.com/threatalytics/backend/internal/domain/assist"
)

// GenerationResponse is the result of a prompt-driven capability call
type GenerationResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// DocumentDTO is the API view of an uploaded document
type DocumentDTO struct {
	ID            string    `json:"id"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToDocumentDTO converts a document entity
func ToDocumentDTO(doc *assist.Document) DocumentDTO {
	return DocumentDTO{
		ID:            doc.ID.String(),
		FileName:      doc.FileName,
		ContentType:   doc.ContentType,
		SizeBytes:     doc.SizeBytes,
		Status:        string(doc.Status),
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

// ToDocumentDTOs converts a document slice
func ToDocumentDTOs(docs []*assist.Document) []DocumentDTO {
	out := make([]DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToDocumentDTO(doc))
	}
	return out
}

// DownloadURLResponse carries a presigned document download link
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConversationDTO is the API view of a saved transcript
type ConversationDTO struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Capability string           `json:"capability"`
	Messages   []assist.Message `json:"messages"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ToConversationDTO converts a conversation entity
func ToConversationDTO(conv *assist.Conversation) ConversationDTO {
	return ConversationDTO{
		ID:         conv.ID.String(),
		Title:      conv.Title,
		Capability: conv.Capability,
		Messages:   conv.Messages,
		CreatedAt:  conv.CreatedAt,
		UpdatedAt:  conv.UpdatedAt,
	}
}

// ConversationSummaryDTO is one row of the conversation list, without the
// transcript body
type ConversationSummaryDTO struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Capability string    `json:"capability"`
	Turns      int       `json:"turns"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToConversationSummaryDTOs converts a conversation slice to list rows
func ToConversationSummaryDTOs(convs []*assist.Conversation) []ConversationSummaryDTO {
	out := make([]ConversationSummaryDTO, 0, len(convs))
	for _, conv := range convs {
		out = append(out, ConversationSummaryDTO{
			ID:         conv.ID.String(),
			Title:      conv.Title,
			Capability: conv.Capability,
			Turns:      len(conv.Messages),
			CreatedAt:  conv.CreatedAt,
			UpdatedAt:  conv.UpdatedAt,
		})
	}
	return out
}

// ActivityEntryDTO is one row of the activity log
type ActivityEntryDTO struct {
	ID         string    `json:"id"`
	Capability string    `json:"capability"`
	Summary    string    `json:"summary"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToActivityEntryDTO converts an activity entry
func ToActivityEntryDTO(entry *assist.ActivityEntry) ActivityEntryDTO {
	return ActivityEntryDTO{
		ID:         entry.ID.String(),
		Capability: entry.Capability,
		Summary:    entry.Summary,
		Note:       entry.Note,
		CreatedAt:  entry.CreatedAt,
	}
}

// ToActivityEntryDTOs converts an activity slice
func ToActivityEntryDTOs(entries []*assist.ActivityEntry) []ActivityEntryDTO {
	out := make([]ActivityEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ToActivityEntryDTO(entry))
	}
	return out
}

// FeedbackDTO acknowledges a submitted rating
type FeedbackDTO struct {
	ID         string    `json:"id"`
	Capability string    `json:"capability"`
	Helpful    bool      `json:"helpful"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToFeedbackDTO converts a feedback entity
func ToFeedbackDTO(fb *assist.Feedback) FeedbackDTO {
	return FeedbackDTO{
		ID:         fb.ID.String(),
		Capability: fb.Capability,
		Helpful:    fb.Helpful,
		CreatedAt:  fb.CreatedAt,
	}
}
