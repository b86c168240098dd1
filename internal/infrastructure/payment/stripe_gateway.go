// Package payment integrates with the Stripe billing API.
package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CheckoutSession is the subset of a created checkout session the caller needs
type CheckoutSession struct {
	SessionID string
	URL       string
}

// StripeGateway wraps the Stripe API for subscription management. Webhook
// processing lives elsewhere; this type only issues outbound API calls.
type StripeGateway struct {
	api    *client.API
	cfg    *config.StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a gateway from configuration
func NewStripeGateway(cfg *config.StripeConfig, logger *zap.Logger) *StripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeGateway{api: api, cfg: cfg, logger: logger}
}

// EnsureCustomer creates a Stripe customer for a tenant if one does not exist
// yet and returns the customer ID
func (g *StripeGateway) EnsureCustomer(ctx context.Context, existingID, email, name string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}

	customer, err := g.api.Customers.New(&stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Name:   stripe.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	g.logger.Info("Created billing customer",
		zap.String("customer_id", customer.ID))
	return customer.ID, nil
}

// CreateCheckoutSession starts a subscription checkout for the given price
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerID, priceID string) (*CheckoutSession, error) {
	session, err := g.api.CheckoutSessions.New(&stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.cfg.CheckoutSuccess),
		CancelURL:  stripe.String(g.cfg.CheckoutCancel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// CreatePortalSession opens the customer billing portal
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	session, err := g.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.cfg.PortalReturnURL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return session.URL, nil
}

// CancelAtPeriodEnd schedules a subscription for cancellation at the end of
// the current billing period. The state change lands via webhook.
func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	_, err := g.api.Subscriptions.Update(subscriptionID, &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}
