package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/shared"
)

// SubscriptionState is written exclusively by the webhook reconciler
type SubscriptionState string

const (
	SubscriptionActive        SubscriptionState = "active"
	SubscriptionCancelled     SubscriptionState = "cancelled"
	SubscriptionPaymentFailed SubscriptionState = "payment_failed"
)

// Subscription tracks a tenant's payment-provider subscription. At most one
// subscription per tenant is authoritative for entitlement (the most recent
// active one). LastEventAt guards against out-of-order webhook delivery:
// events older than the last applied one are acknowledged but skipped, so a
// stale update can never resurrect a cancelled subscription.
type Subscription struct {
	shared.BaseAggregateRoot
	TenantID             uuid.UUID
	StripeSubscriptionID string
	StripeCustomerID     string
	PlanID               string
	State                SubscriptionState
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	LastEventAt          time.Time
}

// NewSubscription creates an active subscription from a provider event
func NewSubscription(tenantID uuid.UUID, stripeSubscriptionID, stripeCustomerID, planID string, eventAt time.Time) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if stripeSubscriptionID == "" {
		return nil, shared.NewDomainError("INVALID_SUBSCRIPTION", "Stripe subscription ID cannot be empty")
	}

	return &Subscription{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		TenantID:             tenantID,
		StripeSubscriptionID: stripeSubscriptionID,
		StripeCustomerID:     stripeCustomerID,
		PlanID:               planID,
		State:                SubscriptionActive,
		LastEventAt:          eventAt,
	}, nil
}

// ShouldApply reports whether an event with the given creation time may be
// applied. Equal timestamps are applied so redeliveries of the last event
// stay idempotent in effect (they overwrite with the same values).
func (s *Subscription) ShouldApply(eventAt time.Time) bool {
	return !eventAt.Before(s.LastEventAt)
}

// Overwrite applies a subscription-updated event verbatim
func (s *Subscription) Overwrite(planID string, state SubscriptionState, cancelAtPeriodEnd bool, periodEnd *time.Time, eventAt time.Time) {
	s.PlanID = planID
	s.State = state
	s.CancelAtPeriodEnd = cancelAtPeriodEnd
	s.CurrentPeriodEnd = periodEnd
	s.LastEventAt = eventAt
	s.Touch()
}

// Cancel marks the subscription cancelled
func (s *Subscription) Cancel(eventAt time.Time) {
	s.State = SubscriptionCancelled
	s.LastEventAt = eventAt
	s.Touch()
}

// MarkPaymentFailed flags a failed invoice payment. The plan is untouched;
// only the state changes.
func (s *Subscription) MarkPaymentFailed(eventAt time.Time) {
	s.State = SubscriptionPaymentFailed
	s.LastEventAt = eventAt
	s.Touch()
}

// Renew returns the subscription to active after a successful payment cycle
func (s *Subscription) Renew(periodEnd *time.Time, eventAt time.Time) {
	s.State = SubscriptionActive
	s.CurrentPeriodEnd = periodEnd
	s.LastEventAt = eventAt
	s.Touch()
}

// IsActive reports whether this subscription currently grants entitlement
func (s *Subscription) IsActive() bool {
	return s.State == SubscriptionActive
}
