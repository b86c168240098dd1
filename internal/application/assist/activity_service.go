package assist

import (
	"context"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/assist"
	"go.uber.org/zap"
)

// ActivityService exposes a tenant's analysis history
type ActivityService struct {
	activityRepo assist.ActivityRepository
	logger       *zap.Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(activityRepo assist.ActivityRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{activityRepo: activityRepo, logger: logger}
}

// List returns a page of a tenant's activity entries
func (s *ActivityService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*assist.ActivityEntry, int64, error) {
	return s.activityRepo.ListByTenant(ctx, tenantID, limit, offset)
}

// UpdateNote replaces the note on an activity entry
func (s *ActivityService) UpdateNote(ctx context.Context, tenantID, id uuid.UUID, note string) (*assist.ActivityEntry, error) {
	entry, err := s.activityRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	entry.UpdateNote(note)
	if err := s.activityRepo.Save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
