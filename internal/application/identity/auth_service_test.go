package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
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

func newAuthFixture() (*AuthService, *MockTenantRepository) {
	repo := new(MockTenantRepository)
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "threatalytics-test",
	})
	svc := NewAuthService(repo, jwtService, auth.NewInMemoryTokenBlacklist(), zap.NewNop())
	return svc, repo
}

func TestSignup(t *testing.T) {
	svc, repo := newAuthFixture()

	repo.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, shared.ErrNotFound)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Signup(context.Background(), SignupInput{
		Email:    " New@Example.com ",
		Name:     "New Analyst",
		Password: "s3cret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", result.Tenant.Email)
	assert.Equal(t, "free", result.Tenant.PlanID)
	assert.NotEmpty(t, result.Tokens.AccessToken)

	// The stored hash must verify against the original password
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(result.Tenant.PasswordHash), []byte("s3cret-password")))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, repo := newAuthFixture()

	existing, err := identity.NewTenant("taken@example.com", "", "hash")
	require.NoError(t, err)
	repo.On("FindByEmail", mock.Anything, "taken@example.com").Return(existing, nil)

	_, err = svc.Signup(context.Background(), SignupInput{
		Email:    "taken@example.com",
		Password: "s3cret-password",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	repo.AssertNotCalled(t, "Save")
}

func TestSignup_WeakPassword(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "a@example.com",
		Password: "short",
	})
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	svc, repo := newAuthFixture()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	tenant, err := identity.NewTenant("a@example.com", "", string(hash))
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "a@example.com").Return(tenant, nil)
	repo.On("Save", mock.Anything, tenant).Return(nil)

	result, err := svc.Login(context.Background(), "a@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.NotNil(t, tenant.LastLoginAt)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo := newAuthFixture()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	tenant, err := identity.NewTenant("a@example.com", "", string(hash))
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "a@example.com").Return(tenant, nil)

	_, err = svc.Login(context.Background(), "a@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, repo := newAuthFixture()

	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, shared.ErrNotFound)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, repo := newAuthFixture()

	tenant, err := identity.NewTenant("a@example.com", "", "hash")
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "a@example.com").Return(nil, shared.ErrNotFound).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(tenant, nil)

	signup, err := svc.Signup(context.Background(), SignupInput{
		Email:    "a@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), signup.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Tokens.AccessToken)

	// The used refresh token is revoked by rotation
	_, err = svc.Refresh(context.Background(), signup.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestLogout_RevokesAccessToken(t *testing.T) {
	svc, repo := newAuthFixture()

	tenant, err := identity.NewTenant("a@example.com", "", "hash")
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "a@example.com").Return(nil, shared.ErrNotFound).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(tenant, nil)

	result, err := svc.Signup(context.Background(), SignupInput{
		Email:    "a@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)

	claims, err := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "threatalytics-test",
	}).ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims, result.Tokens.RefreshToken))

	_, err = svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}
