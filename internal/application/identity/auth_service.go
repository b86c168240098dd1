// Package identity contains account and authentication application services.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Common errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
)

// AuthService handles signup, login, and token lifecycle
type AuthService struct {
	tenantRepo identity.TenantRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(tenantRepo identity.TenantRepository, jwtService *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		tenantRepo: tenantRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// SignupInput contains input for account registration
type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// AuthResult is returned by signup, login, and refresh
type AuthResult struct {
	Tenant *identity.Tenant
	Tokens *auth.TokenPair
}

// Signup registers a new tenant on the free plan
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if len(input.Password) < 8 {
		return nil, shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	}

	if _, err := s.tenantRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	tenant, err := identity.NewTenant(email, input.Name, string(hash))
	if err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(tenant)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tenant signed up",
		zap.String("tenant_id", tenant.ID.String()))
	return &AuthResult{Tenant: tenant, Tokens: tokens}, nil
}

// Login authenticates a tenant by email and password
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	tenant, err := s.tenantRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Burn a comparison so missing accounts cost the same as
			// wrong passwords.
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tenant.RecordLogin(time.Now())
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Warn("Failed to record login time", zap.Error(err))
	}

	tokens, err := s.issueTokens(tenant)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Tenant: tenant, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("Blacklist check failed", zap.Error(err))
		} else if revoked {
			return nil, auth.ErrTokenRevoked
		}
	}

	tenantID, err := claims.GetTenantUUID()
	if err != nil {
		return nil, auth.ErrInvalidClaims
	}
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(tenant)
	if err != nil {
		return nil, err
	}

	// Rotate: the used refresh token is dead from here on
	if s.blacklist != nil {
		if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
			s.logger.Warn("Failed to blacklist rotated refresh token", zap.Error(err))
		}
	}

	return &AuthResult{Tenant: tenant, Tokens: tokens}, nil
}

// Logout revokes the given tokens for their remaining lifetime
func (s *AuthService) Logout(ctx context.Context, accessClaims *auth.Claims, refreshToken string) error {
	if s.blacklist == nil {
		return nil
	}

	if accessClaims != nil {
		if err := s.blacklist.AddToBlacklist(ctx, accessClaims.ID, accessClaims.GetRemainingTTL()); err != nil {
			return err
		}
	}

	if refreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
		if err == nil {
			if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				return err
			}
		}
	}

	return nil
}

// Me returns the tenant for verified claims
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*identity.Tenant, error) {
	tenantID, err := claims.GetTenantUUID()
	if err != nil {
		return nil, auth.ErrInvalidClaims
	}
	return s.tenantRepo.FindByID(ctx, tenantID)
}

// issueTokens creates a token pair for a tenant
func (s *AuthService) issueTokens(tenant *identity.Tenant) (*auth.TokenPair, error) {
	return s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: tenant.ID,
		Email:    tenant.Email,
		Role:     string(tenant.Role),
	})
}
