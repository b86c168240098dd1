package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/threatalytics/backend/internal/application/billing"
	"github.com/threatalytics/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EntitlementKey is the context key the verified entitlement is stored under
const EntitlementKey = "entitlement"

// EntitlementGate returns a middleware that checks the tenant's plan and
// remaining quota before a metered capability runs. It must sit after JWT
// authentication. On allow it stores the entitlement in the context and sets
// the quota headers; denials are 403 with a code the client can branch on.
func EntitlementGate(svc *appbilling.EntitlementService, capability string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(GetJWTTenantID(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			return
		}

		ent, err := svc.Check(c.Request.Context(), tenantID, capability)
		if ent != nil {
			c.Header("X-Quota-Limit", strconv.FormatInt(ent.Limit, 10))
			c.Header("X-Quota-Remaining", strconv.FormatInt(ent.Remaining, 10))
		}
		if err != nil {
			switch {
			case errors.Is(err, shared.ErrPlanNotAllowed):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "ERR_PLAN_NOT_ALLOWED",
						"message": "Current plan does not include this capability",
					},
				})
			case errors.Is(err, shared.ErrQuotaExceeded):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "ERR_QUOTA_EXCEEDED",
						"message": "Monthly plan quota has been reached",
					},
				})
			case errors.Is(err, shared.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "ERR_UNAUTHORIZED",
						"message": "Unknown tenant",
					},
				})
			default:
				logger.Error("Entitlement check failed",
					zap.String("tenant_id", tenantID.String()),
					zap.String("capability", capability),
					zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "ERR_INTERNAL",
						"message": "Internal server error",
					},
				})
			}
			return
		}

		c.Set(EntitlementKey, ent)
		c.Next()
	}
}

// UsageRecorderConfig holds configuration for the async usage recorder
type UsageRecorderConfig struct {
	// BufferSize is the size of the async write buffer
	BufferSize int
	// Logger for recorder logging
	Logger *zap.Logger
}

// UsageRecorder writes usage records off the request path. Records are
// at-least-once: when the buffer is full the write happens synchronously
// instead of being dropped.
type UsageRecorder struct {
	svc     *appbilling.EntitlementService
	buffer  chan appbilling.RecordUsageInput
	logger  *zap.Logger
	wg      sync.WaitGroup
	stopCh  chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewUsageRecorder creates a usage recorder
func NewUsageRecorder(svc *appbilling.EntitlementService, cfg UsageRecorderConfig) *UsageRecorder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bufferSize := cfg.BufferSize
	if bufferSize == 0 {
		bufferSize = 1000
	}
	return &UsageRecorder{
		svc:    svc,
		buffer: make(chan appbilling.RecordUsageInput, bufferSize),
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins the background writer goroutine
func (r *UsageRecorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.wg.Add(1)
	go r.writer()
}

// Stop drains the buffer and stops the writer
func (r *UsageRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("Usage recorder stop timed out")
		return ctx.Err()
	}
}

func (r *UsageRecorder) writer() {
	defer r.wg.Done()

	for {
		select {
		case input := <-r.buffer:
			r.save(input)
		case <-r.stopCh:
			for {
				select {
				case input := <-r.buffer:
					r.save(input)
				default:
					return
				}
			}
		}
	}
}

func (r *UsageRecorder) save(input appbilling.RecordUsageInput) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.svc.RecordUsage(ctx, input); err != nil {
		// One retry before giving up
		if err := r.svc.RecordUsage(ctx, input); err != nil {
			r.logger.Error("Failed to record usage",
				zap.String("tenant_id", input.TenantID.String()),
				zap.String("endpoint", input.Endpoint),
				zap.Error(err))
		}
	}
}

// Record queues a usage record, falling back to a synchronous write when the
// buffer is full
func (r *UsageRecorder) Record(input appbilling.RecordUsageInput) {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()

	if !running {
		r.save(input)
		return
	}

	select {
	case r.buffer <- input:
	default:
		r.save(input)
	}
}

// MeterUsage returns a middleware that records one usage event after each
// successful response from a metered capability. It must sit after the
// entitlement gate. Failed requests are not billed.
func MeterUsage(recorder *UsageRecorder, capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		tenantID, err := uuid.Parse(GetJWTTenantID(c))
		if err != nil {
			return
		}

		recorder.Record(appbilling.RecordUsageInput{
			TenantID:  tenantID,
			Endpoint:  capability,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Metadata: map[string]any{
				"method":      c.Request.Method,
				"status_code": c.Writer.Status(),
			},
		})
	}
}
