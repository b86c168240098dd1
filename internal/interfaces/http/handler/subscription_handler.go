package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/threatalytics/backend/internal/application/billing"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// SubscriptionHandler serves plan management endpoints. Local subscription
// state only changes through webhooks; these endpoints call out to the
// billing provider and report back.
type SubscriptionHandler struct {
	BaseHandler
	subscriptionService *appbilling.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptionService *appbilling.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// Checkout starts a hosted checkout session for a paid plan
// POST /api/v1/subscription/checkout
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	session, err := h.subscriptionService.StartCheckout(c.Request.Context(), tenantID, req.PlanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"session_id":   session.SessionID,
		"checkout_url": session.URL,
	})
}

// Portal returns a billing portal URL for self-service plan management
// POST /api/v1/subscription/portal
func (h *SubscriptionHandler) Portal(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	url, err := h.subscriptionService.OpenPortal(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"portal_url": url})
}

// Cancel schedules cancellation at period end
// POST /api/v1/subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.subscriptionService.CancelSubscription(c.Request.Context(), tenantID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"cancel_requested": true})
}

// Status returns the tenant's subscription state and the plan catalog
// GET /api/v1/subscription
func (h *SubscriptionHandler) Status(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	status, err := h.subscriptionService.Status(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}
