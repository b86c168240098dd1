package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"github.com/threatalytics/backend/internal/infrastructure/cache"
	"github.com/threatalytics/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testDependencies() Dependencies {
	return Dependencies{
		Config: &config.Config{
			App: config.AppConfig{Name: "threatalytics", Env: "test"},
			HTTP: config.HTTPConfig{
				MaxBodySize:          1 << 20,
				CORSAllowOrigins:     []string{"https://app.threatalytics.io"},
				CORSAllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				CORSAllowHeaders:     []string{"Content-Type", "Authorization"},
				DemoRateLimitPerHour: 5,
			},
		},
		JWTService: auth.NewJWTService(config.JWTConfig{
			Secret:                 "test-secret-at-least-32-characters!!",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: 24 * time.Hour,
			Issuer:                 "threatalytics-test",
		}),
		RateLimiter: cache.NewInMemoryRateLimiter(),
		Version:     "test",
	}
}

func TestRouter_HealthProbes(t *testing.T) {
	engine := New(testDependencies())

	for _, path := range []string{"/health", "/healthz", "/ready"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	engine := New(testDependencies())

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/usage"},
		{http.MethodGet, "/api/v1/documents"},
		{http.MethodPost, "/api/v1/assist/analyze"},
		{http.MethodGet, "/api/v1/subscription"},
		{http.MethodGet, "/api/v1/admin/dashboard"},
	}
	for _, route := range protected {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	engine := New(testDependencies())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
