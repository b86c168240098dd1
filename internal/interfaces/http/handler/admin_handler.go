package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appadmin "github.com/threatalytics/backend/internal/application/admin"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/interfaces/http/dto"
)

// AdminHandler serves operator-only endpoints
type AdminHandler struct {
	BaseHandler
	dashboardService *appadmin.DashboardService
	exportService    *appadmin.ExportService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(dashboardService *appadmin.DashboardService, exportService *appadmin.ExportService) *AdminHandler {
	return &AdminHandler{
		dashboardService: dashboardService,
		exportService:    exportService,
	}
}

// Dashboard returns deployment-wide aggregates
// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.dashboardService.Overview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dashboard)
}

// ListTenants returns tenants with optional plan, status, and search filters
// GET /api/v1/admin/tenants
func (h *AdminHandler) ListTenants(c *gin.Context) {
	page, pageSize, limit, offset := pagination(c)

	filter := identity.TenantListFilter{
		PlanID:             c.Query("plan"),
		SubscriptionStatus: identity.SubscriptionStatus(c.Query("status")),
		Search:             c.Query("search"),
		Limit:              limit,
		Offset:             offset,
	}

	tenants, total, err := h.dashboardService.ListTenants(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, tenants, total, page, pageSize)
}

// ExportTenants streams all tenants as CSV
// GET /api/v1/admin/exports/tenants
func (h *AdminHandler) ExportTenants(c *gin.Context) {
	data, err := h.exportService.Tenants(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	serveCSV(c, "tenants.csv", data)
}

// ExportTenantUsage streams one tenant's usage records as CSV. The window
// defaults to the last 30 days and is capped at a year.
// GET /api/v1/admin/tenants/:id/usage.csv
func (h *AdminHandler) ExportTenantUsage(c *gin.Context) {
	tenantID, ok := h.adminTenantID(c)
	if !ok {
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			h.BadRequest(c, "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	since := time.Now().AddDate(0, 0, -days)
	data, err := h.exportService.TenantUsage(c.Request.Context(), tenantID, since)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	serveCSV(c, "usage-"+tenantID.String()+".csv", data)
}

// ExportTenantPayments streams one tenant's payment history as CSV
// GET /api/v1/admin/tenants/:id/payments.csv
func (h *AdminHandler) ExportTenantPayments(c *gin.Context) {
	tenantID, ok := h.adminTenantID(c)
	if !ok {
		return
	}

	data, err := h.exportService.TenantPayments(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	serveCSV(c, "payments-"+tenantID.String()+".csv", data)
}

func (h *AdminHandler) adminTenantID(c *gin.Context) (uuid.UUID, bool) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	tenantID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return tenantID, true
}

func serveCSV(c *gin.Context, fileName string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
