package handler

import (
	"github.com/gin-gonic/gin"
	appidentity "github.com/threatalytics/backend/internal/application/identity"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
	"github.com/threatalytics/backend/internal/interfaces/http/middleware"
)

// AuthHandler serves signup, login, and session endpoints
type AuthHandler struct {
	BaseHandler
	authService *appidentity.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *appidentity.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup registers a new tenant account
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), appidentity.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.AuthResponse{
		Tenant: dto.ToTenantDTO(result.Tenant),
		Tokens: result.Tokens,
	})
}

// Login authenticates with email and password
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.AuthResponse{
		Tenant: dto.ToTenantDTO(result.Tenant),
		Tokens: result.Tokens,
	})
}

// Refresh exchanges a refresh token for a new pair
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.AuthResponse{
		Tenant: dto.ToTenantDTO(result.Tenant),
		Tokens: result.Tokens,
	})
}

// Logout revokes the current access token and, when supplied, the refresh
// token for their remaining lifetimes
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BindError(c, err)
		return
	}

	claims := middleware.GetJWTClaims(c)
	if err := h.authService.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Me returns the authenticated tenant's account
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	tenant, err := h.authService.Me(c.Request.Context(), claims)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToTenantDTO(tenant))
}
