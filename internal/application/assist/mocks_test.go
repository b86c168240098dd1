package assist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/infrastructure/llm"
)

// MockLLMClient is a mock implementation of llm.Client
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.CompletionResult), args.Error(1)
}

// MockActivityRepository is a mock implementation of assist.ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Save(ctx context.Context, entry *assist.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*assist.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assist.ActivityEntry), args.Error(1)
}

func (m *MockActivityRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.ActivityEntry, int64, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*assist.ActivityEntry), args.Get(1).(int64), args.Error(2)
}

// MockDocumentRepository is a mock implementation of assist.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *assist.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*assist.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assist.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.Document, int64, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*assist.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockConversationRepository is a mock implementation of assist.ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Save(ctx context.Context, conv *assist.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*assist.Conversation, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assist.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.Conversation, int64, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*assist.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockFeedbackRepository is a mock implementation of assist.FeedbackRepository
type MockFeedbackRepository struct {
	mock.Mock
}

func (m *MockFeedbackRepository) Save(ctx context.Context, fb *assist.Feedback) error {
	args := m.Called(ctx, fb)
	return args.Error(0)
}

func (m *MockFeedbackRepository) StatsSince(ctx context.Context, since time.Time) (assist.FeedbackStats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(assist.FeedbackStats), args.Error(1)
}

func (m *MockFeedbackRepository) StatsByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (assist.FeedbackStats, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Get(0).(assist.FeedbackStats), args.Error(1)
}
