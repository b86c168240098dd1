package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	appbilling "github.com/threatalytics/backend/internal/application/billing"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// UsageHandler exposes the tenant's current-period consumption
type UsageHandler struct {
	BaseHandler
	entitlementService *appbilling.EntitlementService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(entitlementService *appbilling.EntitlementService) *UsageHandler {
	return &UsageHandler{entitlementService: entitlementService}
}

// Summary returns the current billing period's usage and entitlement
// GET /api/v1/usage
func (h *UsageHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	summary, err := h.entitlementService.Summary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// Check runs an informational entitlement check for one capability. Unlike
// the gate on the metered routes, a denial here is a 200 with allowed=false.
// GET /api/v1/usage/check?capability=analyze
func (h *UsageHandler) Check(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	capability := c.Query("capability")
	if capability == "" {
		h.BadRequest(c, "A capability query parameter is required")
		return
	}

	ent, err := h.entitlementService.Check(c.Request.Context(), tenantID, capability)
	if err != nil && !errors.Is(err, shared.ErrPlanNotAllowed) && !errors.Is(err, shared.ErrQuotaExceeded) {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ent)
}

// Track appends one explicit usage event
// POST /api/v1/usage/track
func (h *UsageHandler) Track(c *gin.Context) {
	var req dto.TrackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	err = h.entitlementService.RecordUsage(c.Request.Context(), appbilling.RecordUsageInput{
		TenantID:  tenantID,
		Endpoint:  req.Endpoint,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"endpoint": req.Endpoint, "recorded": true})
}
