// Package router assembles the HTTP surface: global middleware, public
// routes, authenticated routes, and the operator-only admin group.
package router

import (
	"github.com/gin-gonic/gin"
	appadmin "github.com/threatalytics/backend/internal/application/admin"
	appassist "github.com/threatalytics/backend/internal/application/assist"
	appbilling "github.com/threatalytics/backend/internal/application/billing"
	appidentity "github.com/threatalytics/backend/internal/application/identity"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"github.com/threatalytics/backend/internal/infrastructure/cache"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/logger"
	"github.com/threatalytics/backend/internal/interfaces/http/handler"
	"github.com/threatalytics/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies carries everything the router wires together
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB

	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist
	RateLimiter    cache.RateLimiter

	AuthService         *appidentity.AuthService
	EntitlementService  *appbilling.EntitlementService
	SubscriptionService *appbilling.SubscriptionService
	WebhookService      *appbilling.StripeWebhookService
	AssistService       *appassist.AssistService
	DocumentService     *appassist.DocumentService
	ConversationService *appassist.ConversationService
	ActivityService     *appassist.ActivityService
	FeedbackService     *appassist.FeedbackService
	DashboardService    *appadmin.DashboardService
	ExportService       *appadmin.ExportService

	UsageRecorder *middleware.UsageRecorder
	Version       string
}

// New builds the gin engine with all middleware and routes registered
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.CORSWithConfig(middleware.CORSFromConfig(&cfg.HTTP)))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	jwtCfg := middleware.DefaultJWTConfig(deps.JWTService)
	jwtCfg.TokenBlacklist = deps.TokenBlacklist
	jwtCfg.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))

	// Handlers
	systemHandler := handler.NewSystemHandler(deps.DB, deps.Version)
	authHandler := handler.NewAuthHandler(deps.AuthService)
	assistHandler := handler.NewAssistHandler(deps.AssistService)
	documentHandler := handler.NewDocumentHandler(deps.DocumentService)
	conversationHandler := handler.NewConversationHandler(deps.ConversationService)
	activityHandler := handler.NewActivityHandler(deps.ActivityService)
	feedbackHandler := handler.NewFeedbackHandler(deps.FeedbackService)
	usageHandler := handler.NewUsageHandler(deps.EntitlementService)
	subscriptionHandler := handler.NewSubscriptionHandler(deps.SubscriptionService)
	webhookHandler := handler.NewWebhookHandler(deps.WebhookService, log)
	adminHandler := handler.NewAdminHandler(deps.DashboardService, deps.ExportService)

	// Probes
	engine.GET("/health", systemHandler.Health)
	engine.GET("/healthz", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	api := engine.Group("/api/v1")

	// Signup, login, and refresh are on the JWT middleware skip list;
	// logout and me require a valid access token.
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authHandler.Me)
	}

	api.POST("/demo/analyze",
		middleware.DemoRateLimit(deps.RateLimiter, cfg.HTTP.DemoRateLimitPerHour, log),
		assistHandler.Demo)

	api.POST("/webhooks/stripe", webhookHandler.Stripe)

	// Metered generation capabilities. Each route carries its own
	// entitlement gate and records usage after a successful call.
	gate := func(capability string) []gin.HandlerFunc {
		return []gin.HandlerFunc{
			middleware.EntitlementGate(deps.EntitlementService, capability, log),
			middleware.MeterUsage(deps.UsageRecorder, capability),
		}
	}

	assist := api.Group("/assist")
	{
		assist.POST("/analyze", append(gate("analyze"), assistHandler.Analyze)...)
		assist.POST("/redact", append(gate("redact"), assistHandler.Redact)...)
		assist.POST("/report", append(gate("report"), assistHandler.Report)...)
		assist.POST("/drill", append(gate("drill"), assistHandler.Drill)...)
		assist.POST("/ask", append(gate("ask"), documentHandler.Ask)...)
	}

	documents := api.Group("/documents")
	{
		documents.POST("", documentHandler.Upload)
		documents.GET("", documentHandler.List)
		documents.GET("/:id", documentHandler.Get)
		documents.POST("/:id/process", documentHandler.Process)
		documents.GET("/:id/download", documentHandler.DownloadURL)
		documents.DELETE("/:id", documentHandler.Delete)
	}

	conversations := api.Group("/conversations")
	{
		conversations.POST("", conversationHandler.Save)
		conversations.GET("", conversationHandler.List)
		conversations.GET("/:id", conversationHandler.Get)
		conversations.DELETE("/:id", conversationHandler.Delete)
	}

	activity := api.Group("/activity")
	{
		activity.GET("", activityHandler.List)
		activity.PATCH("/:id/note", activityHandler.UpdateNote)
	}

	api.POST("/feedback", feedbackHandler.Submit)
	api.GET("/metrics/feedback", feedbackHandler.Stats)

	usage := api.Group("/usage")
	{
		usage.GET("", usageHandler.Summary)
		usage.GET("/check", usageHandler.Check)
		usage.POST("/track", usageHandler.Track)
	}

	subscription := api.Group("/subscription")
	{
		subscription.GET("", subscriptionHandler.Status)
		subscription.POST("/checkout", subscriptionHandler.Checkout)
		subscription.POST("/portal", subscriptionHandler.Portal)
		subscription.POST("/cancel", subscriptionHandler.Cancel)
	}

	admin := api.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.GET("/tenants", adminHandler.ListTenants)
		admin.GET("/exports/tenants", adminHandler.ExportTenants)
		admin.GET("/tenants/:id/usage.csv", adminHandler.ExportTenantUsage)
		admin.GET("/tenants/:id/payments.csv", adminHandler.ExportTenantPayments)
	}

	return engine
}
