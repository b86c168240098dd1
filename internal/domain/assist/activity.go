package assist

import (
	"context"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/shared"
)

// ActivityEntry is one line of a tenant's analysis history. Entries are
// written by the assist services after each successful generation; only the
// note is mutable afterwards.
type ActivityEntry struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	Capability string
	Summary    string
	Note       string
}

// NewActivityEntry records an assist invocation in the activity log
func NewActivityEntry(tenantID uuid.UUID, capability, summary string) (*ActivityEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if capability == "" {
		return nil, shared.NewDomainError("INVALID_CAPABILITY", "Capability cannot be empty")
	}

	return &ActivityEntry{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Capability: capability,
		Summary:    summary,
	}, nil
}

// UpdateNote replaces the user-supplied note
func (a *ActivityEntry) UpdateNote(note string) {
	a.Note = note
	a.Touch()
}

// ActivityRepository persists activity entries
type ActivityRepository interface {
	Save(ctx context.Context, entry *ActivityEntry) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ActivityEntry, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*ActivityEntry, int64, error)
}
