// Package admin contains operator-facing application services.
package admin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// Dashboard is the operator overview of the whole deployment
type Dashboard struct {
	TotalTenants        int64                `json:"total_tenants"`
	ActiveSubscriptions int64                `json:"active_subscriptions"`
	PaymentFailures     int64                `json:"payment_failures"`
	RevenueThisMonth    decimal.Decimal      `json:"revenue_this_month"`
	GenerationsLast24h  int64                `json:"generations_last_24h"`
	Feedback            assist.FeedbackStats `json:"feedback_last_30_days"`
	RecentSignups       []TenantSummary      `json:"recent_signups"`
}

// TenantSummary is one tenant row on the dashboard
type TenantSummary struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	PlanID             string    `json:"plan_id"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
}

// DashboardService aggregates deployment-wide numbers for operators
type DashboardService struct {
	tenantRepo   identity.TenantRepository
	usageRepo    billing.UsageRecordRepository
	paymentRepo  billing.PaymentRecordRepository
	feedbackRepo assist.FeedbackRepository
	logger       *zap.Logger
}

// DashboardServiceConfig bundles DashboardService dependencies
type DashboardServiceConfig struct {
	TenantRepo   identity.TenantRepository
	UsageRepo    billing.UsageRecordRepository
	PaymentRepo  billing.PaymentRecordRepository
	FeedbackRepo assist.FeedbackRepository
	Logger       *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(cfg DashboardServiceConfig) *DashboardService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		tenantRepo:   cfg.TenantRepo,
		usageRepo:    cfg.UsageRepo,
		paymentRepo:  cfg.PaymentRepo,
		feedbackRepo: cfg.FeedbackRepo,
		logger:       logger,
	}
}

// Overview collects the dashboard numbers. Individual aggregate failures are
// logged and leave their field zeroed rather than failing the whole page.
func (s *DashboardService) Overview(ctx context.Context) (*Dashboard, error) {
	now := time.Now()
	dash := &Dashboard{RevenueThisMonth: decimal.Zero}

	total, err := s.tenantRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	dash.TotalTenants = total

	if n, err := s.tenantRepo.CountBySubscriptionStatus(ctx, identity.SubscriptionStatusActive); err != nil {
		s.logger.Warn("Dashboard aggregate failed", zap.String("metric", "active_subscriptions"), zap.Error(err))
	} else {
		dash.ActiveSubscriptions = n
	}

	if n, err := s.tenantRepo.CountBySubscriptionStatus(ctx, identity.SubscriptionStatusPaymentFailed); err != nil {
		s.logger.Warn("Dashboard aggregate failed", zap.String("metric", "payment_failures"), zap.Error(err))
	} else {
		dash.PaymentFailures = n
	}

	monthStart, _ := billing.CurrentPeriod(now)
	if revenue, err := s.paymentRepo.SumPaidSince(ctx, monthStart); err != nil {
		s.logger.Warn("Dashboard aggregate failed", zap.String("metric", "revenue"), zap.Error(err))
	} else {
		dash.RevenueThisMonth = revenue
	}

	if n, err := s.usageRepo.CountSince(ctx, now.Add(-24*time.Hour)); err != nil {
		s.logger.Warn("Dashboard aggregate failed", zap.String("metric", "generations"), zap.Error(err))
	} else {
		dash.GenerationsLast24h = n
	}

	if stats, err := s.feedbackRepo.StatsSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		s.logger.Warn("Dashboard aggregate failed", zap.String("metric", "feedback"), zap.Error(err))
	} else {
		dash.Feedback = stats
	}

	if recent, err := s.tenantRepo.ListCreatedSince(ctx, now.AddDate(0, 0, -7), 10); err != nil {
		s.logger.Warn("Dashboard aggregate failed", zap.String("metric", "recent_signups"), zap.Error(err))
	} else {
		dash.RecentSignups = toSummaries(recent)
	}

	return dash, nil
}

// ListTenants returns a filtered page of tenants for the operator view
func (s *DashboardService) ListTenants(ctx context.Context, filter identity.TenantListFilter) ([]TenantSummary, int64, error) {
	tenants, total, err := s.tenantRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return toSummaries(tenants), total, nil
}

func toSummaries(tenants []*identity.Tenant) []TenantSummary {
	out := make([]TenantSummary, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, TenantSummary{
			ID:                 t.ID.String(),
			Email:              t.Email,
			Name:               t.Name,
			PlanID:             t.PlanID,
			SubscriptionStatus: string(t.SubscriptionStatus),
			CreatedAt:          t.CreatedAt,
		})
	}
	return out
}
