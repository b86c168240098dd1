package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appassist "github.com/threatalytics/backend/internal/application/assist"
	"github.com/threatalytics/backend/internal/domain/assist"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// ConversationHandler serves saved transcripts
type ConversationHandler struct {
	BaseHandler
	conversationService *appassist.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(conversationService *appassist.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// Save creates a conversation or replaces an existing transcript
// POST /api/v1/conversations
func (h *ConversationHandler) Save(c *gin.Context) {
	var req dto.SaveConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	input := appassist.SaveInput{
		TenantID:   tenantID,
		Title:      req.Title,
		Capability: req.Capability,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			h.BadRequest(c, "Invalid conversation ID")
			return
		}
		input.ID = &id
	}
	for _, msg := range req.Messages {
		input.Messages = append(input.Messages, assist.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	conv, err := h.conversationService.Save(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if input.ID == nil {
		h.Created(c, dto.ToConversationDTO(conv))
		return
	}
	h.Success(c, dto.ToConversationDTO(conv))
}

// List returns the tenant's conversations without transcript bodies
// GET /api/v1/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	page, pageSize, limit, offset := pagination(c)
	convs, total, err := h.conversationService.List(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToConversationSummaryDTOs(convs), total, page, pageSize)
}

// Get returns one conversation with its full transcript
// GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	tenantID, convID, ok := h.tenantAndConvID(c)
	if !ok {
		return
	}

	conv, err := h.conversationService.Get(c.Request.Context(), tenantID, convID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToConversationDTO(conv))
}

// Delete removes a conversation
// DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	tenantID, convID, ok := h.tenantAndConvID(c)
	if !ok {
		return
	}

	if err := h.conversationService.Delete(c.Request.Context(), tenantID, convID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *ConversationHandler) tenantAndConvID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid conversation ID")
		return uuid.Nil, uuid.Nil, false
	}
	convID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid conversation ID")
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, convID, true
}
