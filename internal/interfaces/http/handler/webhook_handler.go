package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	appbilling "github.com/threatalytics/backend/internal/application/billing"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// maxWebhookBody caps webhook payload reads. Stripe events are small; 64KB
// leaves generous headroom.
const maxWebhookBody = 64 * 1024

// WebhookHandler receives billing provider webhook deliveries
type WebhookHandler struct {
	BaseHandler
	webhookService *appbilling.StripeWebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *appbilling.StripeWebhookService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{webhookService: webhookService, logger: logger}
}

// Stripe processes one webhook delivery. Signature failures are the only 400;
// processing failures after a valid signature return 200 so the provider does
// not retry events we have already judged unprocessable.
// POST /api/v1/webhooks/stripe
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.BadRequest(c, "Failed to read webhook payload")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	result, err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, appbilling.ErrInvalidSignature) {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeWebhookSignature, "Webhook signature verification failed")
			return
		}
		h.logger.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true, "processed": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":   true,
		"processed":  result.Processed,
		"event_id":   result.EventID,
		"event_type": result.EventType,
	})
}
