package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appidentity "github.com/threatalytics/backend/internal/application/identity"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/interfaces/http/middleware"
)

// memTenantRepo keeps tenants in a map, enough for auth round trips
type memTenantRepo struct {
	identity.TenantRepository
	mu      sync.Mutex
	byEmail map[string]*identity.Tenant
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{byEmail: make(map[string]*identity.Tenant)}
}

func (r *memTenantRepo) Save(_ context.Context, tenant *identity.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEmail[tenant.Email] = tenant
	return nil
}

func (r *memTenantRepo) FindByEmail(_ context.Context, email string) (*identity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenant, ok := r.byEmail[email]; ok {
		return tenant, nil
	}
	return nil, shared.ErrNotFound
}

func authTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "threatalytics-test",
	})
	svc := appidentity.NewAuthService(newMemTenantRepo(), jwtService, auth.NewInMemoryTokenBlacklist(), nil)
	h := NewAuthHandler(svc)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.POST("/api/v1/auth/signup", h.Signup)
	router.POST("/api/v1/auth/login", h.Login)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSignupEndpoint(t *testing.T) {
	router := authTestRouter(t)

	w := postJSON(router, "/api/v1/auth/signup",
		`{"email":"acme@example.com","name":"Acme","password":"correct-horse"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
	assert.Contains(t, w.Body.String(), `"plan_id":"free"`)
}

func TestSignupEndpoint_ValidationFailure(t *testing.T) {
	router := authTestRouter(t)

	w := postJSON(router, "/api/v1/auth/signup", `{"email":"not-an-email","password":"short"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_VALIDATION")
	assert.Contains(t, w.Body.String(), "Email")
}

func TestSignupEndpoint_DuplicateEmail(t *testing.T) {
	router := authTestRouter(t)

	body := `{"email":"acme@example.com","password":"correct-horse"}`
	require.Equal(t, http.StatusCreated, postJSON(router, "/api/v1/auth/signup", body).Code)

	w := postJSON(router, "/api/v1/auth/signup", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginEndpoint(t *testing.T) {
	router := authTestRouter(t)
	require.Equal(t, http.StatusCreated, postJSON(router, "/api/v1/auth/signup",
		`{"email":"acme@example.com","password":"correct-horse"}`).Code)

	w := postJSON(router, "/api/v1/auth/login",
		`{"email":"acme@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "refresh_token")
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	router := authTestRouter(t)
	require.Equal(t, http.StatusCreated, postJSON(router, "/api/v1/auth/signup",
		`{"email":"acme@example.com","password":"correct-horse"}`).Code)

	w := postJSON(router, "/api/v1/auth/login",
		`{"email":"acme@example.com","password":"wrong-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INVALID_CREDENTIALS")
}
