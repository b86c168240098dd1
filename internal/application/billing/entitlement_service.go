// Package billing contains the metering and payment application services.
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/cache"
	"github.com/threatalytics/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// EntitlementService decides whether a tenant may make a billable call and
// records the usage afterwards. Checks fail open: when the usage store cannot
// be read the call is allowed.
type EntitlementService struct {
	tenantRepo identity.TenantRepository
	usageRepo  billing.UsageRecordRepository
	usageCache cache.UsageCache
	metrics    *telemetry.ServiceMetrics
	logger     *zap.Logger
	cacheTTL   time.Duration
}

// EntitlementServiceConfig contains dependencies for EntitlementService.
// UsageCache and Metrics are optional.
type EntitlementServiceConfig struct {
	TenantRepo identity.TenantRepository
	UsageRepo  billing.UsageRecordRepository
	UsageCache cache.UsageCache
	Metrics    *telemetry.ServiceMetrics
	Logger     *zap.Logger
	CacheTTL   time.Duration
}

// NewEntitlementService creates a new EntitlementService
func NewEntitlementService(cfg EntitlementServiceConfig) *EntitlementService {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EntitlementService{
		tenantRepo: cfg.TenantRepo,
		usageRepo:  cfg.UsageRepo,
		usageCache: cfg.UsageCache,
		metrics:    cfg.Metrics,
		logger:     logger,
		cacheTTL:   cacheTTL,
	}
}

// Check evaluates whether the tenant may invoke the given capability right
// now. The returned entitlement is always populated; a denial is signalled
// with shared.ErrPlanNotAllowed or shared.ErrQuotaExceeded.
func (s *EntitlementService) Check(ctx context.Context, tenantID uuid.UUID, capability string) (*billing.Entitlement, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	plan, ok := billing.PlanByID(tenant.PlanID)
	if !ok {
		// Unknown plan ids degrade to the free tier
		s.logger.Warn("Tenant has unknown plan, falling back to free",
			zap.String("tenant_id", tenantID.String()),
			zap.String("plan_id", tenant.PlanID))
		plan = billing.PlanFree
	}

	if !plan.Allows(capability) {
		ent := plan.CheckUsage(0)
		ent.Allowed = false
		return &ent, shared.ErrPlanNotAllowed
	}

	used, failedOpen := s.currentUsage(ctx, tenantID)
	ent := plan.CheckUsage(used)
	if failedOpen {
		ent.FailedOpen = true
		ent.Allowed = true
		return &ent, nil
	}

	if !ent.Allowed {
		if s.metrics != nil {
			s.metrics.RecordQuotaDenied(ctx, plan.ID)
		}
		return &ent, shared.ErrQuotaExceeded
	}

	return &ent, nil
}

// currentUsage returns the tenant's call count for the current calendar
// month. The second return value reports that the count could not be read
// and the caller should fail open.
func (s *EntitlementService) currentUsage(ctx context.Context, tenantID uuid.UUID) (int64, bool) {
	if s.usageCache != nil {
		if count, hit, err := s.usageCache.Get(ctx, tenantID); err == nil && hit {
			return count, false
		}
	}

	periodStart, _ := billing.CurrentPeriod(time.Now())
	count, err := s.usageRepo.CountByTenantSince(ctx, tenantID, periodStart)
	if err != nil {
		s.logger.Error("Usage count query failed, allowing call",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return 0, true
	}

	if s.usageCache != nil {
		if err := s.usageCache.Set(ctx, tenantID, count, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache usage count", zap.Error(err))
		}
	}
	return count, false
}

// RecordUsageInput describes one billable call to record
type RecordUsageInput struct {
	TenantID  uuid.UUID
	Endpoint  string
	UserID    *uuid.UUID
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// RecordUsage appends a usage record for a completed billable call. Delivery
// is at-least-once: callers retry on failure and duplicates are accepted.
func (s *EntitlementService) RecordUsage(ctx context.Context, input RecordUsageInput) error {
	record, err := billing.NewUsageRecord(input.TenantID, input.Endpoint)
	if err != nil {
		return err
	}
	if input.UserID != nil {
		record.WithUser(*input.UserID)
	}
	record.WithRequestInfo(input.IPAddress, input.UserAgent)
	for k, v := range input.Metadata {
		record.WithMetadata(k, v)
	}

	if err := s.usageRepo.Save(ctx, record); err != nil {
		s.logger.Error("Failed to record usage",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("endpoint", input.Endpoint),
			zap.Error(err))
		return err
	}

	if s.usageCache != nil {
		if err := s.usageCache.Invalidate(ctx, input.TenantID); err != nil {
			s.logger.Warn("Failed to invalidate usage cache", zap.Error(err))
		}
	}
	return nil
}

// EndpointUsage is the per-capability breakdown within a usage summary
type EndpointUsage struct {
	Endpoint string `json:"endpoint"`
	Count    int64  `json:"count"`
}

// UsageSummary is the tenant-facing view of current-period consumption
type UsageSummary struct {
	Entitlement billing.Entitlement `json:"entitlement"`
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	ByEndpoint  []EndpointUsage     `json:"by_endpoint"`
}

// Summary returns the tenant's usage for the current billing period
func (s *EntitlementService) Summary(ctx context.Context, tenantID uuid.UUID) (*UsageSummary, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	plan, ok := billing.PlanByID(tenant.PlanID)
	if !ok {
		plan = billing.PlanFree
	}

	periodStart, periodEnd := billing.CurrentPeriod(time.Now())
	used, err := s.usageRepo.CountByTenantSince(ctx, tenantID, periodStart)
	if err != nil {
		return nil, err
	}

	summary := &UsageSummary{
		Entitlement: plan.CheckUsage(used),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}

	for _, capability := range plan.Capabilities {
		count, err := s.usageRepo.CountByTenantAndEndpointSince(ctx, tenantID, capability, periodStart)
		if err != nil {
			return nil, err
		}
		summary.ByEndpoint = append(summary.ByEndpoint, EndpointUsage{
			Endpoint: capability,
			Count:    count,
		})
	}

	return summary, nil
}
