package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrInvalidSignature is returned when webhook signature verification fails.
// Nothing is mutated in that case.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// StripeWebhookService reconciles provider webhook events into local
// subscription state. Stripe state always wins: handlers overwrite local
// values with whatever the event carries. Out-of-order delivery is guarded
// per subscription by the event creation timestamp.
type StripeWebhookService struct {
	cfg              *config.StripeConfig
	tenantRepo       identity.TenantRepository
	subscriptionRepo billing.SubscriptionRepository
	paymentRepo      billing.PaymentRecordRepository
	metrics          *telemetry.ServiceMetrics
	logger           *zap.Logger
}

// StripeWebhookServiceConfig contains dependencies for StripeWebhookService
type StripeWebhookServiceConfig struct {
	Config           *config.StripeConfig
	TenantRepo       identity.TenantRepository
	SubscriptionRepo billing.SubscriptionRepository
	PaymentRepo      billing.PaymentRecordRepository
	Metrics          *telemetry.ServiceMetrics
	Logger           *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeWebhookService{
		cfg:              cfg.Config,
		tenantRepo:       cfg.TenantRepo,
		subscriptionRepo: cfg.SubscriptionRepo,
		paymentRepo:      cfg.PaymentRepo,
		metrics:          cfg.Metrics,
		logger:           logger,
	}
}

// WebhookResult contains the outcome of processing one webhook delivery
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies the payload signature and applies the event.
// Signature failures return ErrInvalidSignature before anything is read from
// or written to storage.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Warn("Rejected webhook with bad signature", zap.Error(err))
		return nil, ErrInvalidSignature
	}

	s.logger.Info("Processing webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}
	eventAt := time.Unix(event.Created, 0)

	switch event.Type {
	case "customer.subscription.created":
		err = s.handleSubscriptionCreated(ctx, event, eventAt, result)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event, eventAt, result)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event, eventAt, result)
	case "invoice.paid", "invoice.payment_succeeded":
		err = s.handleInvoicePaid(ctx, event, result)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event, eventAt, result)
	default:
		result.Message = "event type not handled"
	}

	outcome := "applied"
	if err != nil {
		outcome = "failed"
	} else if result.Message != "" {
		outcome = "skipped"
	}
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(ctx, string(event.Type), outcome)
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// planForSubscription resolves the plan id from the subscription's first
// price. Unknown prices resolve to the free tier.
func (s *StripeWebhookService) planForSubscription(sub *stripe.Subscription) string {
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price == nil {
				continue
			}
			if planID, ok := s.cfg.PlanForPrice(item.Price.ID); ok {
				return planID
			}
			s.logger.Warn("Subscription price has no plan mapping",
				zap.String("subscription_id", sub.ID),
				zap.String("price_id", item.Price.ID))
		}
	}
	return billing.PlanFree.ID
}

func mapSubscriptionState(status stripe.SubscriptionStatus) billing.SubscriptionState {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return billing.SubscriptionActive
	case stripe.SubscriptionStatusCanceled:
		return billing.SubscriptionCancelled
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return billing.SubscriptionPaymentFailed
	default:
		return billing.SubscriptionActive
	}
}

func periodEnd(sub *stripe.Subscription) *time.Time {
	if sub.CurrentPeriodEnd <= 0 {
		return nil
	}
	t := time.Unix(sub.CurrentPeriodEnd, 0)
	return &t
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func (s *StripeWebhookService) handleSubscriptionCreated(ctx context.Context, event stripe.Event, eventAt time.Time, result *WebhookResult) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	custID := customerID(sub.Customer)
	if custID == "" {
		result.Message = "subscription has no customer"
		return nil
	}

	tenant, err := s.tenantRepo.FindByStripeCustomerID(ctx, custID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Deliveries can race tenant setup; acknowledge and let
			// Stripe's next event for this subscription land.
			s.logger.Warn("Tenant not found for customer",
				zap.String("customer_id", custID))
			result.Message = "tenant not found"
			return nil
		}
		return fmt.Errorf("failed to find tenant: %w", err)
	}

	planID := s.planForSubscription(&sub)

	existing, err := s.subscriptionRepo.FindByStripeSubscriptionID(ctx, sub.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("failed to find subscription: %w", err)
	}
	if existing != nil {
		if !existing.ShouldApply(eventAt) {
			result.Message = "stale event skipped"
			return nil
		}
		existing.Overwrite(planID, billing.SubscriptionActive, sub.CancelAtPeriodEnd, periodEnd(&sub), eventAt)
		if err := s.subscriptionRepo.Save(ctx, existing); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
	} else {
		created, err := billing.NewSubscription(tenant.ID, sub.ID, custID, planID, eventAt)
		if err != nil {
			return err
		}
		created.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		created.CurrentPeriodEnd = periodEnd(&sub)
		if err := s.subscriptionRepo.Save(ctx, created); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
	}

	tenant.ChangePlan(planID)
	tenant.SetSubscriptionStatus(identity.SubscriptionStatusActive)
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	s.logger.Info("Subscription created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subscription_id", sub.ID),
		zap.String("plan", planID))
	return nil
}

func (s *StripeWebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event, eventAt time.Time, result *WebhookResult) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	existing, err := s.subscriptionRepo.FindByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Updated can arrive before created; treat it the same way
			return s.handleSubscriptionCreated(ctx, event, eventAt, result)
		}
		return fmt.Errorf("failed to find subscription: %w", err)
	}

	if !existing.ShouldApply(eventAt) {
		s.logger.Info("Skipping stale subscription event",
			zap.String("subscription_id", sub.ID),
			zap.Time("event_at", eventAt),
			zap.Time("last_event_at", existing.LastEventAt))
		result.Message = "stale event skipped"
		return nil
	}

	planID := s.planForSubscription(&sub)
	state := mapSubscriptionState(sub.Status)
	existing.Overwrite(planID, state, sub.CancelAtPeriodEnd, periodEnd(&sub), eventAt)
	if err := s.subscriptionRepo.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	tenant, err := s.tenantRepo.FindByID(ctx, existing.TenantID)
	if err != nil {
		return fmt.Errorf("failed to find tenant: %w", err)
	}
	tenant.ChangePlan(planID)
	tenant.SetSubscriptionStatus(identity.SubscriptionStatus(state))
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	s.logger.Info("Subscription updated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subscription_id", sub.ID),
		zap.String("plan", planID),
		zap.String("state", string(state)))
	return nil
}

func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event, eventAt time.Time, result *WebhookResult) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	existing, err := s.subscriptionRepo.FindByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			result.Message = "subscription not found"
			return nil
		}
		return fmt.Errorf("failed to find subscription: %w", err)
	}

	if !existing.ShouldApply(eventAt) {
		result.Message = "stale event skipped"
		return nil
	}

	existing.Cancel(eventAt)
	if err := s.subscriptionRepo.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	tenant, err := s.tenantRepo.FindByID(ctx, existing.TenantID)
	if err != nil {
		return fmt.Errorf("failed to find tenant: %w", err)
	}
	tenant.ResetToFreePlan()
	tenant.SetSubscriptionStatus(identity.SubscriptionStatusCancelled)
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	s.logger.Info("Subscription cancelled, tenant reset to free",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subscription_id", sub.ID))
	return nil
}

func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	custID := customerID(invoice.Customer)
	if custID == "" {
		result.Message = "invoice has no customer"
		return nil
	}

	tenant, err := s.tenantRepo.FindByStripeCustomerID(ctx, custID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			result.Message = "tenant not found"
			return nil
		}
		return fmt.Errorf("failed to find tenant: %w", err)
	}

	paidAt := time.Unix(event.Created, 0)
	if invoice.StatusTransitions != nil && invoice.StatusTransitions.PaidAt > 0 {
		paidAt = time.Unix(invoice.StatusTransitions.PaidAt, 0)
	}

	// Amounts arrive in the currency's smallest unit
	amount := decimal.New(invoice.AmountPaid, -2)
	record, err := billing.NewPaymentRecord(tenant.ID, invoice.ID, amount, string(invoice.Currency), paidAt)
	if err != nil {
		return err
	}
	if err := s.paymentRepo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save payment record: %w", err)
	}

	s.logger.Info("Invoice payment recorded",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("invoice_id", invoice.ID),
		zap.String("amount", amount.String()))
	return nil
}

func (s *StripeWebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event, eventAt time.Time, result *WebhookResult) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	custID := customerID(invoice.Customer)
	if custID == "" {
		result.Message = "invoice has no customer"
		return nil
	}

	tenant, err := s.tenantRepo.FindByStripeCustomerID(ctx, custID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			result.Message = "tenant not found"
			return nil
		}
		return fmt.Errorf("failed to find tenant: %w", err)
	}

	// The plan stays as is; only the status flips so the UI can prompt for
	// a payment method. Entitlement follows the plan until cancellation.
	sub, err := s.subscriptionRepo.FindByTenantID(ctx, tenant.ID)
	if err == nil {
		if !sub.ShouldApply(eventAt) {
			result.Message = "stale event skipped"
			return nil
		}
		sub.MarkPaymentFailed(eventAt)
		if err := s.subscriptionRepo.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("failed to find subscription: %w", err)
	}

	tenant.SetSubscriptionStatus(identity.SubscriptionStatusPaymentFailed)
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	s.logger.Warn("Invoice payment failed",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("invoice_id", invoice.ID))
	return nil
}
