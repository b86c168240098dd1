package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/infrastructure/payment"
)

// MockTenantRepository is a mock implementation of identity.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByEmail(ctx context.Context, email string) (*identity.Tenant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.Tenant, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context, filter identity.TenantListFilter) ([]*identity.Tenant, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.Tenant), args.Get(1).(int64), args.Error(2)
}

func (m *MockTenantRepository) ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]*identity.Tenant, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) CountBySubscriptionStatus(ctx context.Context, status identity.SubscriptionStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUsageRecordRepository is a mock implementation of billing.UsageRecordRepository
type MockUsageRecordRepository struct {
	mock.Mock
}

func (m *MockUsageRecordRepository) Save(ctx context.Context, record *billing.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsageRecordRepository) CountByTenantSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRecordRepository) CountByTenantAndEndpointSince(ctx context.Context, tenantID uuid.UUID, endpoint string, since time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, endpoint, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRecordRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRecordRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]*billing.UsageRecord, error) {
	args := m.Called(ctx, tenantID, since, limit)
	return args.Get(0).([]*billing.UsageRecord), args.Error(1)
}

// MockSubscriptionRepository is a mock implementation of billing.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) FindByTenantID(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	args := m.Called(ctx, stripeSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) CountByState(ctx context.Context, state billing.SubscriptionState) (int64, error) {
	args := m.Called(ctx, state)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentRecordRepository is a mock implementation of billing.PaymentRecordRepository
type MockPaymentRecordRepository struct {
	mock.Mock
}

func (m *MockPaymentRecordRepository) Save(ctx context.Context, record *billing.PaymentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPaymentRecordRepository) SumPaidSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRecordRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.PaymentRecord, error) {
	args := m.Called(ctx, tenantID, limit)
	return args.Get(0).([]*billing.PaymentRecord), args.Error(1)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) EnsureCustomer(ctx context.Context, existingID, email, name string) (string, error) {
	args := m.Called(ctx, existingID, email, name)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, customerID, priceID string) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, customerID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}
