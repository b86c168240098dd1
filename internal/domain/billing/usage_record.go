package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/shared"
)

// UsageRecord is an immutable record of a single billable call. Records are
// append-only; corrections are made with new records, never updates. Retried
// client requests produce duplicate records by design (at-least-once).
type UsageRecord struct {
	shared.BaseEntity
	TenantID    uuid.UUID
	Endpoint    string
	Quantity    int64
	RecordedAt  time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	UserID      *uuid.UUID
	IPAddress   string
	UserAgent   string
	Metadata    Metadata
}

// Metadata holds additional context about a usage record
type Metadata map[string]any

// CurrentPeriod returns the calendar-month billing window containing now:
// the first instant of the month through the last instant before the next.
func CurrentPeriod(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// NewUsageRecord creates a usage record for one billable call in the current
// calendar month
func NewUsageRecord(tenantID uuid.UUID, endpoint string) (*UsageRecord, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if endpoint == "" {
		return nil, shared.NewDomainError("INVALID_ENDPOINT", "Endpoint name cannot be empty")
	}

	now := time.Now()
	start, end := CurrentPeriod(now)
	return &UsageRecord{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		Endpoint:    endpoint,
		Quantity:    1,
		RecordedAt:  now,
		PeriodStart: start,
		PeriodEnd:   end,
		Metadata:    make(Metadata),
	}, nil
}

// WithUser sets the user who triggered the usage
func (r *UsageRecord) WithUser(userID uuid.UUID) *UsageRecord {
	r.UserID = &userID
	return r
}

// WithRequestInfo attaches the client address and user agent
func (r *UsageRecord) WithRequestInfo(ipAddress, userAgent string) *UsageRecord {
	r.IPAddress = ipAddress
	r.UserAgent = userAgent
	return r
}

// WithMetadata adds a metadata entry
func (r *UsageRecord) WithMetadata(key string, value any) *UsageRecord {
	if r.Metadata == nil {
		r.Metadata = make(Metadata)
	}
	r.Metadata[key] = value
	return r
}

// IsInPeriod reports whether t falls inside this record's billing window
func (r *UsageRecord) IsInPeriod(t time.Time) bool {
	return !t.Before(r.PeriodStart) && !t.After(r.PeriodEnd)
}
