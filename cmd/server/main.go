package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminapp "github.com/threatalytics/backend/internal/application/admin"
	assistapp "github.com/threatalytics/backend/internal/application/assist"
	billingapp "github.com/threatalytics/backend/internal/application/billing"
	identityapp "github.com/threatalytics/backend/internal/application/identity"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"github.com/threatalytics/backend/internal/infrastructure/cache"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/llm"
	"github.com/threatalytics/backend/internal/infrastructure/logger"
	"github.com/threatalytics/backend/internal/infrastructure/payment"
	"github.com/threatalytics/backend/internal/infrastructure/persistence"
	"github.com/threatalytics/backend/internal/infrastructure/storage"
	"github.com/threatalytics/backend/internal/infrastructure/telemetry"
	"github.com/threatalytics/backend/internal/interfaces/http/middleware"
	"github.com/threatalytics/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting threatalytics backend",
		zap.String("version", version),
		zap.String("env", cfg.App.Env))

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	serviceMetrics, err := telemetry.NewServiceMetrics(meterProvider.Meter("threatalytics"))
	if err != nil {
		log.Fatal("Failed to create service metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, gormlogger.Warn)
	database, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := database.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	if err := database.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// Redis is optional: when unreachable the process runs on in-memory
	// fallbacks, losing cross-instance rate limits and token revocation.
	var (
		tokenBlacklist auth.TokenBlacklist
		rateLimiter    cache.RateLimiter
		usageCache     cache.UsageCache
	)
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory fallbacks", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
		rateLimiter = cache.NewInMemoryRateLimiter()
		usageCache = cache.NewInMemoryUsageCache()
	} else {
		defer func() { _ = redisClient.Close() }()
		tokenBlacklist = auth.NewRedisTokenBlacklist(redisClient)
		rateLimiter = cache.NewRedisRateLimiter(redisClient)
		usageCache = cache.NewRedisUsageCache(redisClient)
	}

	// Document storage
	var docStorage assistapp.DocumentStorage
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3DocumentStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		docStorage = s3Storage
	} else {
		log.Warn("No storage bucket configured, documents are held in memory")
		docStorage = storage.NewStubDocumentStorage()
	}

	// Repositories
	db := database.DB
	tenantRepo := persistence.NewTenantRepository(db)
	usageRepo := persistence.NewUsageRecordRepository(db)
	subscriptionRepo := persistence.NewSubscriptionRepository(db)
	paymentRepo := persistence.NewPaymentRecordRepository(db)
	documentRepo := persistence.NewDocumentRepository(db)
	conversationRepo := persistence.NewConversationRepository(db)
	feedbackRepo := persistence.NewFeedbackRepository(db)
	activityRepo := persistence.NewActivityRepository(db)

	// Infrastructure services
	jwtService := auth.NewJWTService(cfg.JWT)
	llmClient := llm.NewHTTPClient(&cfg.LLM, log)
	stripeGateway := payment.NewStripeGateway(&cfg.Stripe, log)

	// Application services
	authService := identityapp.NewAuthService(tenantRepo, jwtService, tokenBlacklist, log)
	entitlementService := billingapp.NewEntitlementService(billingapp.EntitlementServiceConfig{
		TenantRepo: tenantRepo,
		UsageRepo:  usageRepo,
		UsageCache: usageCache,
		Metrics:    serviceMetrics,
		Logger:     log,
	})
	subscriptionService := billingapp.NewSubscriptionService(billingapp.SubscriptionServiceConfig{
		Gateway:          stripeGateway,
		Config:           &cfg.Stripe,
		TenantRepo:       tenantRepo,
		SubscriptionRepo: subscriptionRepo,
		PaymentRepo:      paymentRepo,
		Logger:           log,
	})
	webhookService := billingapp.NewStripeWebhookService(billingapp.StripeWebhookServiceConfig{
		Config:           &cfg.Stripe,
		TenantRepo:       tenantRepo,
		SubscriptionRepo: subscriptionRepo,
		PaymentRepo:      paymentRepo,
		Metrics:          serviceMetrics,
		Logger:           log,
	})
	assistService := assistapp.NewAssistService(assistapp.AssistServiceConfig{
		Client:       llmClient,
		Prompts:      &cfg.Prompts,
		LLM:          &cfg.LLM,
		ActivityRepo: activityRepo,
		Metrics:      serviceMetrics,
		Logger:       log,
	})
	documentService := assistapp.NewDocumentService(assistapp.DocumentServiceConfig{
		DocRepo:      documentRepo,
		Storage:      docStorage,
		Client:       llmClient,
		Prompts:      &cfg.Prompts,
		StorageCfg:   &cfg.Storage,
		ActivityRepo: activityRepo,
		Metrics:      serviceMetrics,
		Logger:       log,
	})
	conversationService := assistapp.NewConversationService(conversationRepo, log)
	activityService := assistapp.NewActivityService(activityRepo, log)
	feedbackService := assistapp.NewFeedbackService(feedbackRepo, log)
	dashboardService := adminapp.NewDashboardService(adminapp.DashboardServiceConfig{
		TenantRepo:   tenantRepo,
		UsageRepo:    usageRepo,
		PaymentRepo:  paymentRepo,
		FeedbackRepo: feedbackRepo,
		Logger:       log,
	})
	exportService := adminapp.NewExportService(tenantRepo, usageRepo, paymentRepo, log)

	// Async usage writer
	usageRecorder := middleware.NewUsageRecorder(entitlementService, middleware.UsageRecorderConfig{
		Logger: log,
	})
	usageRecorder.Start()

	engine := router.New(router.Dependencies{
		Config:              cfg,
		Logger:              log,
		DB:                  db,
		JWTService:          jwtService,
		TokenBlacklist:      tokenBlacklist,
		RateLimiter:         rateLimiter,
		AuthService:         authService,
		EntitlementService:  entitlementService,
		SubscriptionService: subscriptionService,
		WebhookService:      webhookService,
		AssistService:       assistService,
		DocumentService:     documentService,
		ConversationService: conversationService,
		ActivityService:     activityService,
		FeedbackService:     feedbackService,
		DashboardService:    dashboardService,
		ExportService:       exportService,
		UsageRecorder:       usageRecorder,
		Version:             version,
	})

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced server shutdown", zap.Error(err))
	}
	if err := usageRecorder.Stop(shutdownCtx); err != nil {
		log.Warn("Usage recorder drain incomplete", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracing shutdown failed", zap.Error(err))
	}

	log.Info("Shutdown complete")
}
