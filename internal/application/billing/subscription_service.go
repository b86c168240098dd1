package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/payment"
	"go.uber.org/zap"
)

// PaymentGateway is the outbound interface to the billing provider
type PaymentGateway interface {
	EnsureCustomer(ctx context.Context, existingID, email, name string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID string) (*payment.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
}

// SubscriptionService starts checkouts and exposes subscription status. All
// state changes land via webhooks, never directly from these calls.
type SubscriptionService struct {
	gateway          PaymentGateway
	cfg              *config.StripeConfig
	tenantRepo       identity.TenantRepository
	subscriptionRepo billing.SubscriptionRepository
	paymentRepo      billing.PaymentRecordRepository
	logger           *zap.Logger
}

// SubscriptionServiceConfig contains dependencies for SubscriptionService
type SubscriptionServiceConfig struct {
	Gateway          PaymentGateway
	Config           *config.StripeConfig
	TenantRepo       identity.TenantRepository
	SubscriptionRepo billing.SubscriptionRepository
	PaymentRepo      billing.PaymentRecordRepository
	Logger           *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(cfg SubscriptionServiceConfig) *SubscriptionService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		gateway:          cfg.Gateway,
		cfg:              cfg.Config,
		tenantRepo:       cfg.TenantRepo,
		subscriptionRepo: cfg.SubscriptionRepo,
		paymentRepo:      cfg.PaymentRepo,
		logger:           logger,
	}
}

// StartCheckout creates a checkout session for upgrading to the given plan
func (s *SubscriptionService) StartCheckout(ctx context.Context, tenantID uuid.UUID, planID string) (*payment.CheckoutSession, error) {
	plan, ok := billing.PlanByID(planID)
	if !ok || plan.ID == billing.PlanFree.ID {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan is not purchasable")
	}
	priceID, ok := s.cfg.PriceIDs[plan.ID]
	if !ok {
		return nil, shared.NewDomainError("PLAN_NOT_CONFIGURED", "Plan has no configured price")
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	custID, err := s.gateway.EnsureCustomer(ctx, tenant.StripeCustomerID, tenant.Email, tenant.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure billing customer: %w", err)
	}
	if custID != tenant.StripeCustomerID {
		tenant.SetStripeCustomerID(custID)
		if err := s.tenantRepo.Save(ctx, tenant); err != nil {
			return nil, fmt.Errorf("failed to save tenant: %w", err)
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, custID, priceID)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.Info("Checkout started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan", planID))
	return session, nil
}

// OpenPortal returns a billing portal URL for the tenant
func (s *SubscriptionService) OpenPortal(ctx context.Context, tenantID uuid.UUID) (string, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if tenant.StripeCustomerID == "" {
		return "", shared.NewDomainError("NO_BILLING_ACCOUNT", "Tenant has no billing account yet")
	}
	return s.gateway.CreatePortalSession(ctx, tenant.StripeCustomerID)
}

// CancelSubscription schedules the tenant's subscription for cancellation at
// period end. Local state changes when the provider confirms via webhook.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, tenantID uuid.UUID) error {
	sub, err := s.subscriptionRepo.FindByTenantID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NO_SUBSCRIPTION", "Tenant has no subscription")
		}
		return err
	}
	if !sub.IsActive() {
		return shared.NewDomainError("SUBSCRIPTION_NOT_ACTIVE", "Subscription is not active")
	}

	if err := s.gateway.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID); err != nil {
		return err
	}

	s.logger.Info("Subscription cancellation requested",
		zap.String("tenant_id", tenantID.String()),
		zap.String("subscription_id", sub.StripeSubscriptionID))
	return nil
}

// PlanDTO describes a purchasable tier
type PlanDTO struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	MonthlyCallQuota int64    `json:"monthly_call_quota"`
	Capabilities     []string `json:"capabilities"`
	Current          bool     `json:"current"`
}

// SubscriptionStatusDTO is the tenant-facing subscription view
type SubscriptionStatusDTO struct {
	PlanID            string     `json:"plan"`
	Status            string     `json:"status"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	Plans             []PlanDTO  `json:"plans"`
}

// Status returns the tenant's subscription state plus the plan catalog
func (s *SubscriptionService) Status(ctx context.Context, tenantID uuid.UUID) (*SubscriptionStatusDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	dto := &SubscriptionStatusDTO{
		PlanID: tenant.PlanID,
		Status: string(tenant.SubscriptionStatus),
	}

	sub, err := s.subscriptionRepo.FindByTenantID(ctx, tenantID)
	if err == nil {
		dto.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		dto.CurrentPeriodEnd = sub.CurrentPeriodEnd
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	for _, plan := range billing.AllPlans() {
		dto.Plans = append(dto.Plans, PlanDTO{
			ID:               plan.ID,
			Name:             plan.Name,
			MonthlyCallQuota: plan.MonthlyCallQuota,
			Capabilities:     plan.Capabilities,
			Current:          plan.ID == tenant.PlanID,
		})
	}

	return dto, nil
}
