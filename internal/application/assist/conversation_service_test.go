package assist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threatalytics/backend/internal/domain/assist"
	"go.uber.org/zap"
)

func TestConversationSave_CreatesWithDerivedTitle(t *testing.T) {
	convRepo := new(MockConversationRepository)
	svc := NewConversationService(convRepo, zap.NewNop())

	var saved *assist.Conversation
	convRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*assist.Conversation)
	}).Return(nil)

	conv, err := svc.Save(context.Background(), SaveInput{
		TenantID:   uuid.New(),
		Capability: "analyze",
		Messages: []assist.Message{
			{Role: "user", Content: "assess this referral\nmore details follow"},
			{Role: "assistant", Content: "Concern Level: MODERATE"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "assess this referral", conv.Title)
	assert.Same(t, conv, saved)
}

func TestConversationSave_ReplacesExisting(t *testing.T) {
	convRepo := new(MockConversationRepository)
	svc := NewConversationService(convRepo, zap.NewNop())

	tenantID := uuid.New()
	existing, err := assist.NewConversation(tenantID, "old title", "analyze",
		[]assist.Message{{Role: "user", Content: "v1"}})
	require.NoError(t, err)

	convRepo.On("FindByID", mock.Anything, tenantID, existing.ID).Return(existing, nil)
	convRepo.On("Save", mock.Anything, existing).Return(nil)

	conv, err := svc.Save(context.Background(), SaveInput{
		TenantID: tenantID,
		ID:       &existing.ID,
		Title:    "new title",
		Messages: []assist.Message{
			{Role: "user", Content: "v1"},
			{Role: "assistant", Content: "v2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "new title", conv.Title)
	assert.Len(t, conv.Messages, 2)
}

func TestFeedbackSubmitAndStats(t *testing.T) {
	feedbackRepo := new(MockFeedbackRepository)
	svc := NewFeedbackService(feedbackRepo, zap.NewNop())

	tenantID := uuid.New()
	convID := uuid.New()

	var saved *assist.Feedback
	feedbackRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*assist.Feedback)
	}).Return(nil)

	fb, err := svc.Submit(context.Background(), FeedbackInput{
		TenantID:       tenantID,
		ConversationID: &convID,
		Capability:     "report",
		Helpful:        true,
		Comment:        "useful structure",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, fb.Helpful)
	require.NotNil(t, fb.ConversationID)
	assert.Equal(t, convID, *fb.ConversationID)

	feedbackRepo.On("StatsByTenantSince", mock.Anything, tenantID, mock.Anything).
		Return(assist.FeedbackStats{Total: 10, Helpful: 8, HelpfulRate: 0.8}, nil)

	stats, err := svc.TenantStats(context.Background(), tenantID, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.InDelta(t, 0.8, stats.HelpfulRate, 0.001)
}

func TestActivityUpdateNote(t *testing.T) {
	activityRepo := new(MockActivityRepository)
	svc := NewActivityService(activityRepo, zap.NewNop())

	tenantID := uuid.New()
	entry, err := assist.NewActivityEntry(tenantID, "analyze", "assess this referral")
	require.NoError(t, err)

	activityRepo.On("FindByID", mock.Anything, tenantID, entry.ID).Return(entry, nil)
	activityRepo.On("Save", mock.Anything, entry).Return(nil)

	updated, err := svc.UpdateNote(context.Background(), tenantID, entry.ID, "escalated to team lead")
	require.NoError(t, err)
	assert.Equal(t, "escalated to team lead", updated.Note)
}
