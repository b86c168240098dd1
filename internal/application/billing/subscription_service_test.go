package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/payment"
	"go.uber.org/zap"
)

func newSubscriptionFixture() (*SubscriptionService, *MockTenantRepository, *MockSubscriptionRepository, *MockPaymentGateway) {
	tenantRepo := new(MockTenantRepository)
	subRepo := new(MockSubscriptionRepository)
	gateway := new(MockPaymentGateway)

	svc := NewSubscriptionService(SubscriptionServiceConfig{
		Gateway: gateway,
		Config: &config.StripeConfig{
			PriceIDs: map[string]string{
				"starter":      "price_starter",
				"professional": "price_pro",
			},
		},
		TenantRepo:       tenantRepo,
		SubscriptionRepo: subRepo,
		Logger:           zap.NewNop(),
	})
	return svc, tenantRepo, subRepo, gateway
}

func TestStartCheckout(t *testing.T) {
	svc, tenantRepo, _, gateway := newSubscriptionFixture()

	tenant, err := identity.NewTenant("ciso@example.com", "CISO", "hash")
	require.NoError(t, err)

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	gateway.On("EnsureCustomer", mock.Anything, "", "ciso@example.com", "CISO").Return("cus_new", nil)
	tenantRepo.On("Save", mock.Anything, tenant).Return(nil)
	gateway.On("CreateCheckoutSession", mock.Anything, "cus_new", "price_starter").
		Return(&payment.CheckoutSession{SessionID: "cs_1", URL: "https://checkout.example/cs_1"}, nil)

	session, err := svc.StartCheckout(context.Background(), tenant.ID, "starter")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.SessionID)
	assert.Equal(t, "cus_new", tenant.StripeCustomerID)
}

func TestStartCheckout_FreePlanRejected(t *testing.T) {
	svc, _, _, _ := newSubscriptionFixture()

	_, err := svc.StartCheckout(context.Background(), uuid.UUID{1}, "free")
	assert.Error(t, err)
}

func TestCancelSubscription(t *testing.T) {
	svc, _, subRepo, gateway := newSubscriptionFixture()

	tenant, err := identity.NewTenant("a@example.com", "", "hash")
	require.NoError(t, err)
	sub, err := billing.NewSubscription(tenant.ID, "sub_1", "cus_1", "starter", time.Now())
	require.NoError(t, err)

	subRepo.On("FindByTenantID", mock.Anything, tenant.ID).Return(sub, nil)
	gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(nil)

	require.NoError(t, svc.CancelSubscription(context.Background(), tenant.ID))
	gateway.AssertExpectations(t)
}

func TestCancelSubscription_NoneExists(t *testing.T) {
	svc, _, subRepo, gateway := newSubscriptionFixture()

	tenantID := uuid.UUID{2}
	subRepo.On("FindByTenantID", mock.Anything, tenantID).Return(nil, shared.ErrNotFound)

	err := svc.CancelSubscription(context.Background(), tenantID)
	assert.Error(t, err)
	gateway.AssertNotCalled(t, "CancelAtPeriodEnd")
}

func TestStatus(t *testing.T) {
	svc, tenantRepo, subRepo, _ := newSubscriptionFixture()

	tenant, err := identity.NewTenant("a@example.com", "", "hash")
	require.NoError(t, err)
	tenant.ChangePlan("professional")
	tenant.SetSubscriptionStatus(identity.SubscriptionStatusActive)

	periodEnd := time.Now().AddDate(0, 1, 0)
	sub, err := billing.NewSubscription(tenant.ID, "sub_1", "cus_1", "professional", time.Now())
	require.NoError(t, err)
	sub.CurrentPeriodEnd = &periodEnd

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	subRepo.On("FindByTenantID", mock.Anything, tenant.ID).Return(sub, nil)

	status, err := svc.Status(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "professional", status.PlanID)
	assert.Equal(t, "active", status.Status)
	assert.Len(t, status.Plans, 4)
	for _, p := range status.Plans {
		assert.Equal(t, p.ID == "professional", p.Current)
	}
}
