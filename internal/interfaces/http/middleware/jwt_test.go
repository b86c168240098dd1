package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"github.com/threatalytics/backend/internal/infrastructure/config"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "threatalytics-test",
	})
}

func jwtTestRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant_id": GetJWTTenantID(c)})
	})
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	tenantID := uuid.New()

	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: tenantID,
		Email:    "a@example.com",
		Role:     "owner",
	})
	require.NoError(t, err)

	router := jwtTestRouter(DefaultJWTConfig(jwtService))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tenantID.String())
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	router := jwtTestRouter(DefaultJWTConfig(newTestJWTService()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
}

func TestJWTAuth_RefreshTokenRejectedOnAccess(t *testing.T) {
	jwtService := newTestJWTService()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: uuid.New(),
		Email:    "a@example.com",
	})
	require.NoError(t, err)

	router := jwtTestRouter(DefaultJWTConfig(jwtService))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.RefreshToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	router := jwtTestRouter(DefaultJWTConfig(newTestJWTService()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_RevokedToken(t *testing.T) {
	jwtService := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()

	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: uuid.New(),
		Email:    "a@example.com",
	})
	require.NoError(t, err)

	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Minute))

	cfg := DefaultJWTConfig(jwtService)
	cfg.TokenBlacklist = blacklist
	router := jwtTestRouter(cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestRequireAdmin(t *testing.T) {
	jwtService := newTestJWTService()

	adminPair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: uuid.New(),
		Email:    "ops@example.com",
		Role:     "admin",
	})
	require.NoError(t, err)
	ownerPair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: uuid.New(),
		Email:    "a@example.com",
		Role:     "owner",
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtService))
	router.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+adminPair.AccessToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+ownerPair.AccessToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
