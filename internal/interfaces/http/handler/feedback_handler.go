package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appassist "github.com/threatalytics/backend/internal/application/assist"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// FeedbackHandler accepts ratings on generated responses
type FeedbackHandler struct {
	BaseHandler
	feedbackService *appassist.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(feedbackService *appassist.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// Submit records a helpful / not-helpful rating
// POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	input := appassist.FeedbackInput{
		TenantID:   tenantID,
		Capability: req.Capability,
		Helpful:    *req.Helpful,
		Comment:    req.Comment,
	}
	if req.ConversationID != "" {
		convID, err := uuid.Parse(req.ConversationID)
		if err != nil {
			h.BadRequest(c, "Invalid conversation ID")
			return
		}
		input.ConversationID = &convID
	}

	fb, err := h.feedbackService.Submit(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToFeedbackDTO(fb))
}

// Stats returns the tenant's helpful-rate over the trailing 30 days
// GET /api/v1/metrics/feedback
func (h *FeedbackHandler) Stats(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	stats, err := h.feedbackService.TenantStats(c.Request.Context(), tenantID, 30*24*time.Hour)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
