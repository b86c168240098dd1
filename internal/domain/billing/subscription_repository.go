package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *Subscription) error
	FindByTenantID(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)
	CountByState(ctx context.Context, state SubscriptionState) (int64, error)
}
