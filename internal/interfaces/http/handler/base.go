package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	appidentity "github.com/threatalytics/backend/internal/application/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/auth"
	"github.com/threatalytics/backend/internal/infrastructure/llm"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
	"github.com/threatalytics/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getTenantID extracts the tenant ID from the verified JWT claims
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := middleware.GetJWTTenantID(c)
	if tenantIDStr == "" {
		return uuid.Nil, errors.New("tenant ID not found in context")
	}
	return uuid.Parse(tenantIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindError converts a request binding failure to a 400 response. Validator
// failures carry per-field details; anything else is a plain bad request.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]dto.ValidationDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, dto.ValidationDetail{
				Field:   fieldErr.Field(),
				Message: "failed on the '" + fieldErr.Tag() + "' rule",
			})
		}
		c.JSON(http.StatusBadRequest,
			dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
		return
	}
	h.BadRequest(c, "Invalid request body")
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts application and domain errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, appidentity.ErrInvalidCredentials):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidCredentials, "Invalid email or password")
		return
	case errors.Is(err, appidentity.ErrEmailTaken):
		h.Error(c, http.StatusConflict, dto.ErrCodeAlreadyExists, "Email is already registered")
		return
	case errors.Is(err, auth.ErrExpiredToken):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeTokenExpired, "Token has expired")
		return
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenRevoked):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Invalid token")
		return
	case errors.Is(err, llm.ErrRateLimited):
		h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Model provider is throttling requests")
		return
	case errors.Is(err, llm.ErrUnauthorized), errors.Is(err, llm.ErrEmptyResponse):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamFailure, "Text generation is temporarily unavailable")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if _, mapped := dto.ErrorCodeHTTPStatus[code]; !mapped {
			// Domain codes without an explicit mapping are rule violations,
			// not server faults
			status = http.StatusUnprocessableEntity
		}
		h.Error(c, status, code, domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}

// pagination reads page/page_size query parameters and converts them to
// limit/offset
func pagination(c *gin.Context) (page, pageSize, limit, offset int) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil || req.Page < 1 {
		req = dto.DefaultListRequest()
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}
	return req.Page, req.PageSize, req.PageSize, (req.Page - 1) * req.PageSize
}
