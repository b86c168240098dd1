package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"go.uber.org/zap"
)

func newTestTenant(t *testing.T, planID string) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant("analyst@example.com", "Analyst", "hash")
	require.NoError(t, err)
	tenant.ChangePlan(planID)
	return tenant
}

func newEntitlementService(tenantRepo *MockTenantRepository, usageRepo *MockUsageRecordRepository) *EntitlementService {
	return NewEntitlementService(EntitlementServiceConfig{
		TenantRepo: tenantRepo,
		UsageRepo:  usageRepo,
		Logger:     zap.NewNop(),
	})
}

func TestCheck_AllowsWithRemainingQuota(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	tenant := newTestTenant(t, "free")
	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	usageRepo.On("CountByTenantSince", mock.Anything, tenant.ID, mock.Anything).Return(int64(99), nil)

	ent, err := svc.Check(context.Background(), tenant.ID, billing.CapabilityAnalyze)
	require.NoError(t, err)
	assert.True(t, ent.Allowed)
	assert.Equal(t, int64(1), ent.Remaining)
}

func TestCheck_BlocksExactlyAtQuota(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	tenant := newTestTenant(t, "free")
	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	usageRepo.On("CountByTenantSince", mock.Anything, tenant.ID, mock.Anything).Return(int64(100), nil)

	ent, err := svc.Check(context.Background(), tenant.ID, billing.CapabilityAnalyze)
	assert.ErrorIs(t, err, shared.ErrQuotaExceeded)
	require.NotNil(t, ent)
	assert.False(t, ent.Allowed)
	assert.Equal(t, int64(0), ent.Remaining)
}

func TestCheck_FailsOpenWhenUsageQueryErrors(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	tenant := newTestTenant(t, "free")
	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	usageRepo.On("CountByTenantSince", mock.Anything, tenant.ID, mock.Anything).
		Return(int64(0), errors.New("connection refused"))

	ent, err := svc.Check(context.Background(), tenant.ID, billing.CapabilityAnalyze)
	require.NoError(t, err)
	assert.True(t, ent.Allowed)
	assert.True(t, ent.FailedOpen)
}

func TestCheck_PlanGating(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	// Document Q&A is professional and up
	tenant := newTestTenant(t, "free")
	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)

	ent, err := svc.Check(context.Background(), tenant.ID, billing.CapabilityAsk)
	assert.ErrorIs(t, err, shared.ErrPlanNotAllowed)
	require.NotNil(t, ent)
	assert.False(t, ent.Allowed)
	usageRepo.AssertNotCalled(t, "CountByTenantSince")
}

func TestCheck_UnlimitedPlanNeverBlocks(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	tenant := newTestTenant(t, "enterprise")
	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	usageRepo.On("CountByTenantSince", mock.Anything, tenant.ID, mock.Anything).Return(int64(1_000_000), nil)

	ent, err := svc.Check(context.Background(), tenant.ID, billing.CapabilityAsk)
	require.NoError(t, err)
	assert.True(t, ent.Allowed)
	assert.True(t, ent.Unlimited)
}

func TestCheck_UnknownPlanFallsBackToFree(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	tenant := newTestTenant(t, "legacy-gold")
	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	usageRepo.On("CountByTenantSince", mock.Anything, tenant.ID, mock.Anything).Return(int64(0), nil)

	ent, err := svc.Check(context.Background(), tenant.ID, billing.CapabilityAnalyze)
	require.NoError(t, err)
	assert.Equal(t, "free", ent.PlanID)
	assert.Equal(t, int64(100), ent.Limit)
}

func TestRecordUsage(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	tenantID := uuid.New()
	var saved *billing.UsageRecord
	usageRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*billing.UsageRecord)
	}).Return(nil)

	err := svc.RecordUsage(context.Background(), RecordUsageInput{
		TenantID:  tenantID,
		Endpoint:  billing.CapabilityReport,
		IPAddress: "203.0.113.7",
		Metadata:  map[string]any{"model": "gpt-4o"},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, tenantID, saved.TenantID)
	assert.Equal(t, "report", saved.Endpoint)
	assert.Equal(t, int64(1), saved.Quantity)
}

func TestRecordUsage_SaveErrorPropagates(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	usageRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	err := svc.RecordUsage(context.Background(), RecordUsageInput{
		TenantID: uuid.New(),
		Endpoint: billing.CapabilityAnalyze,
	})
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	tenantRepo := new(MockTenantRepository)
	usageRepo := new(MockUsageRecordRepository)
	svc := newEntitlementService(tenantRepo, usageRepo)

	tenant := newTestTenant(t, "starter")
	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	usageRepo.On("CountByTenantSince", mock.Anything, tenant.ID, mock.Anything).Return(int64(120), nil)
	usageRepo.On("CountByTenantAndEndpointSince", mock.Anything, tenant.ID, "analyze", mock.Anything).Return(int64(80), nil)
	usageRepo.On("CountByTenantAndEndpointSince", mock.Anything, tenant.ID, "redact", mock.Anything).Return(int64(30), nil)
	usageRepo.On("CountByTenantAndEndpointSince", mock.Anything, tenant.ID, "report", mock.Anything).Return(int64(10), nil)
	usageRepo.On("CountByTenantAndEndpointSince", mock.Anything, tenant.ID, "drill", mock.Anything).Return(int64(0), nil)

	summary, err := svc.Summary(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), summary.Entitlement.Used)
	assert.Equal(t, int64(380), summary.Entitlement.Remaining)
	assert.Len(t, summary.ByEndpoint, 4)
	assert.True(t, summary.PeriodEnd.After(summary.PeriodStart))
}
