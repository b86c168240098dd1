package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appbilling "github.com/threatalytics/backend/internal/application/billing"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// stubTenantRepo serves a single tenant; unused methods panic via the
// embedded nil interface.
type stubTenantRepo struct {
	identity.TenantRepository
	tenant *identity.Tenant
}

func (s *stubTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return s.tenant, nil
}

type stubUsageRepo struct {
	billing.UsageRecordRepository
	count int64

	mu    sync.Mutex
	saved []*billing.UsageRecord
}

func (s *stubUsageRepo) CountByTenantSince(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return s.count, nil
}

func (s *stubUsageRepo) Save(_ context.Context, record *billing.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, record)
	return nil
}

func (s *stubUsageRepo) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func newGateFixture(t *testing.T, planID string, used int64) (*appbilling.EntitlementService, *identity.Tenant, *stubUsageRepo) {
	t.Helper()
	tenant, err := identity.NewTenant("analyst@example.com", "Analyst", "hash")
	require.NoError(t, err)
	tenant.ChangePlan(planID)

	usageRepo := &stubUsageRepo{count: used}
	svc := appbilling.NewEntitlementService(appbilling.EntitlementServiceConfig{
		TenantRepo: &stubTenantRepo{tenant: tenant},
		UsageRepo:  usageRepo,
		Logger:     zap.NewNop(),
	})
	return svc, tenant, usageRepo
}

func gateRequest(svc *appbilling.EntitlementService, tenantID, capability string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/assist",
		func(c *gin.Context) { c.Set(JWTTenantIDKey, tenantID); c.Next() },
		EntitlementGate(svc, capability, zap.NewNop()),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) },
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assist", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestEntitlementGate_Allows(t *testing.T) {
	svc, tenant, _ := newGateFixture(t, "free", 99)

	w := gateRequest(svc, tenant.ID.String(), billing.CapabilityAnalyze)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-Quota-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-Quota-Remaining"))
}

func TestEntitlementGate_BlocksAtQuota(t *testing.T) {
	svc, tenant, _ := newGateFixture(t, "free", 100)

	w := gateRequest(svc, tenant.ID.String(), billing.CapabilityAnalyze)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_QUOTA_EXCEEDED")
	assert.Equal(t, "0", w.Header().Get("X-Quota-Remaining"))
}

func TestEntitlementGate_BlocksUngatedCapability(t *testing.T) {
	svc, tenant, _ := newGateFixture(t, "free", 0)

	w := gateRequest(svc, tenant.ID.String(), billing.CapabilityAsk)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_PLAN_NOT_ALLOWED")
}

func TestEntitlementGate_MissingTenant(t *testing.T) {
	svc, _, _ := newGateFixture(t, "free", 0)

	w := gateRequest(svc, "", billing.CapabilityAnalyze)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeterUsage_RecordsSuccessfulCalls(t *testing.T) {
	svc, tenant, usageRepo := newGateFixture(t, "starter", 0)

	recorder := NewUsageRecorder(svc, UsageRecorderConfig{Logger: zap.NewNop()})
	recorder.Start()
	defer recorder.Stop(context.Background())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/assist",
		func(c *gin.Context) { c.Set(JWTTenantIDKey, tenant.ID.String()); c.Next() },
		MeterUsage(recorder, billing.CapabilityAnalyze),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assist", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, recorder.Stop(context.Background()))
	assert.Equal(t, 1, usageRepo.savedCount())
}

func TestMeterUsage_SkipsFailedCalls(t *testing.T) {
	svc, tenant, usageRepo := newGateFixture(t, "starter", 0)

	recorder := NewUsageRecorder(svc, UsageRecorderConfig{Logger: zap.NewNop()})
	recorder.Start()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/assist",
		func(c *gin.Context) { c.Set(JWTTenantIDKey, tenant.ID.String()); c.Next() },
		MeterUsage(recorder, billing.CapabilityAnalyze),
		func(c *gin.Context) { c.JSON(http.StatusBadGateway, gin.H{"success": false}) },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assist", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)

	require.NoError(t, recorder.Stop(context.Background()))
	assert.Equal(t, 0, usageRepo.savedCount())
}
