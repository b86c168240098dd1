package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appassist "github.com/threatalytics/backend/internal/application/assist"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// DocumentHandler serves document upload, processing, and Q&A endpoints
type DocumentHandler struct {
	BaseHandler
	documentService *appassist.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *appassist.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload accepts a multipart document upload
// POST /api/v1/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A file field is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "Failed to read uploaded file")
		return
	}

	doc, err := h.documentService.Upload(c.Request.Context(), appassist.UploadInput{
		TenantID:    tenantID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.ToDocumentDTO(doc))
}

// List returns the tenant's documents
// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	page, pageSize, limit, offset := pagination(c)
	docs, total, err := h.documentService.List(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.ToDocumentDTOs(docs), total, page, pageSize)
}

// Get returns one document
// GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndDocID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.Get(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToDocumentDTO(doc))
}

// Process extracts text from an uploaded document
// POST /api/v1/documents/:id/process
func (h *DocumentHandler) Process(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndDocID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.Process(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToDocumentDTO(doc))
}

// DownloadURL returns a short-lived presigned link to the raw document
// GET /api/v1/documents/:id/download
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndDocID(c)
	if !ok {
		return
	}

	url, expiresAt, err := h.documentService.DownloadURL(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.DownloadURLResponse{URL: url, ExpiresAt: expiresAt})
}

// Delete removes a document and its stored bytes
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndDocID(c)
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), tenantID, docID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Ask runs a Q&A mode against a processed document
// POST /api/v1/assist/ask
func (h *DocumentHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	docID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	result, err := h.documentService.Ask(c.Request.Context(), appassist.AskInput{
		TenantID:   tenantID,
		DocumentID: docID,
		Mode:       req.Mode,
		Question:   req.Question,
	})
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

func (h *DocumentHandler) tenantAndDocID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid document ID")
		return uuid.Nil, uuid.Nil, false
	}
	docID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, docID, true
}
