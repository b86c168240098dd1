package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appassist "github.com/threatalytics/backend/internal/application/assist"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// ActivityHandler serves the tenant activity log
type ActivityHandler struct {
	BaseHandler
	activityService *appassist.ActivityService
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activityService *appassist.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// List returns activity entries, newest first
// GET /api/v1/activity
func (h *ActivityHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	page, pageSize, limit, offset := pagination(c)
	entries, total, err := h.activityService.List(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToActivityEntryDTOs(entries), total, page, pageSize)
}

// UpdateNote replaces the note on an activity entry
// PATCH /api/v1/activity/:id/note
func (h *ActivityHandler) UpdateNote(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid activity entry ID")
		return
	}
	entryID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid activity entry ID")
		return
	}

	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.activityService.UpdateNote(c.Request.Context(), tenantID, entryID, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToActivityEntryDTO(entry))
}
