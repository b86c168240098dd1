package identity

import (
	"strings"
	"time"

	"github.com/threatalytics/backend/internal/domain/shared"
)

// SubscriptionStatus mirrors the authoritative subscription state onto the
// tenant so entitlement checks need a single lookup. Only the webhook
// reconciler and admin overrides may change it.
type SubscriptionStatus string

const (
	SubscriptionStatusNone          SubscriptionStatus = "none"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "payment_failed"
)

// Role determines access to the admin surface
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Tenant is an account of the product. Exactly one plan at a time; the plan
// name references the code-defined plan registry in the billing package.
type Tenant struct {
	shared.BaseAggregateRoot
	Email              string
	Name               string
	PasswordHash       string
	Role               Role
	PlanID             string
	StripeCustomerID   string
	SubscriptionStatus SubscriptionStatus
	EmailVerified      bool
	LastLoginAt        *time.Time
}

// NewTenant creates a tenant on the free plan with no subscription
func NewTenant(email, name, passwordHash string) (*Tenant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}
	if passwordHash == "" {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password hash cannot be empty")
	}

	return &Tenant{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Email:              email,
		Name:               name,
		PasswordHash:       passwordHash,
		Role:               RoleMember,
		PlanID:             "free",
		SubscriptionStatus: SubscriptionStatusNone,
	}, nil
}

// ChangePlan moves the tenant onto a different plan
func (t *Tenant) ChangePlan(planID string) error {
	if planID == "" {
		return shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}
	t.PlanID = planID
	t.Touch()
	return nil
}

// ResetToFreePlan downgrades the tenant to the free tier
func (t *Tenant) ResetToFreePlan() {
	t.PlanID = "free"
	t.Touch()
}

// SetSubscriptionStatus updates the mirrored subscription status
func (t *Tenant) SetSubscriptionStatus(status SubscriptionStatus) {
	t.SubscriptionStatus = status
	t.Touch()
}

// SetStripeCustomerID links the tenant to its payment-provider customer
func (t *Tenant) SetStripeCustomerID(customerID string) {
	t.StripeCustomerID = customerID
	t.Touch()
}

// PromoteToAdmin grants access to the admin surface
func (t *Tenant) PromoteToAdmin() {
	t.Role = RoleAdmin
	t.Touch()
}

// IsAdmin reports whether the tenant may use admin endpoints
func (t *Tenant) IsAdmin() bool {
	return t.Role == RoleAdmin
}

// VerifyEmail marks the tenant's email address as confirmed
func (t *Tenant) VerifyEmail() {
	t.EmailVerified = true
	t.Touch()
}

// RecordLogin stores the time of the latest successful login
func (t *Tenant) RecordLogin(at time.Time) {
	t.LastLoginAt = &at
	t.Touch()
}
