package dto

import (
	"time"

	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
)

// TenantDTO is the tenant-facing account view
type TenantDTO struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               string     `json:"role"`
	PlanID             string     `json:"plan_id"`
	SubscriptionStatus string     `json:"subscription_status"`
	EmailVerified      bool       `json:"email_verified"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// AuthResponse carries the account and its session tokens
type AuthResponse struct {
	Tenant TenantDTO       `json:"tenant"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// ToTenantDTO converts a tenant aggregate to its API representation
func ToTenantDTO(tenant *identity.Tenant) TenantDTO {
	return TenantDTO{
		ID:                 tenant.ID.String(),
		Email:              tenant.Email,
		Name:               tenant.Name,
		Role:               string(tenant.Role),
		PlanID:             tenant.PlanID,
		SubscriptionStatus: string(tenant.SubscriptionStatus),
		EmailVerified:      tenant.EmailVerified,
		LastLoginAt:        tenant.LastLoginAt,
		CreatedAt:          tenant.CreatedAt,
	}
}
