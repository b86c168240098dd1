package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appassist "github.com/threatalytics/backend/internal/application/assist"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// AssistHandler serves the prompt-driven generation capabilities
type AssistHandler struct {
	BaseHandler
	assistService *appassist.AssistService
}

// NewAssistHandler creates a new AssistHandler
func NewAssistHandler(assistService *appassist.AssistService) *AssistHandler {
	return &AssistHandler{assistService: assistService}
}

type generateFn func(ctx context.Context, tenantID uuid.UUID, input string) (*appassist.GenerationResult, error)

func (h *AssistHandler) generate(c *gin.Context, fn generateFn) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	result, err := fn(c.Request.Context(), tenantID, req.Input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.GenerationResponse{
		Content:          result.Content,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	})
}

// Analyze runs log and artifact analysis
// POST /api/v1/assist/analyze
func (h *AssistHandler) Analyze(c *gin.Context) {
	h.generate(c, h.assistService.Analyze)
}

// Redact rewrites text with sensitive values removed
// POST /api/v1/assist/redact
func (h *AssistHandler) Redact(c *gin.Context) {
	h.generate(c, h.assistService.Redact)
}

// Report drafts an incident report
// POST /api/v1/assist/report
func (h *AssistHandler) Report(c *gin.Context) {
	h.generate(c, h.assistService.Report)
}

// Drill generates a tabletop exercise scenario
// POST /api/v1/assist/drill
func (h *AssistHandler) Drill(c *gin.Context) {
	h.generate(c, h.assistService.Drill)
}

// Demo runs a truncated, unauthenticated analysis. No account, no activity
// entry, no usage record.
// POST /api/v1/demo/analyze
func (h *AssistHandler) Demo(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.assistService.Demo(c.Request.Context(), req.Input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.GenerationResponse{
		Content:          result.Content,
		Model:            result.Model,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	})
}
