package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantListFilter narrows tenant listings
type TenantListFilter struct {
	PlanID             string
	SubscriptionStatus SubscriptionStatus
	Search             string
	Limit              int
	Offset             int
}

// TenantRepository persists tenants
type TenantRepository interface {
	Save(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByEmail(ctx context.Context, email string) (*Tenant, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Tenant, error)
	List(ctx context.Context, filter TenantListFilter) ([]*Tenant, int64, error)
	ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]*Tenant, error)
	Count(ctx context.Context) (int64, error)
	CountBySubscriptionStatus(ctx context.Context, status SubscriptionStatus) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
