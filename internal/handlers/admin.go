// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type AdminHandler struct {
	adminService      *services.AdminService
	reputationService *services.ReputationService
}

func NewAdminHandler(adminService *services.AdminService, reputationService *services.ReputationService) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		reputationService: reputationService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	// Build filter parameters
	filter := services.AdminUserFilter{
		PaginationParams: params,
	}

	// Parse filters
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if isSME := c.Query("is_sme"); isSME != "" {
		if b, err := strconv.ParseBool(isSME); err == nil {
			filter.IsSME = &b
		}
	}

	users, total, err := h.adminService.GetUsers(c.Request.Context(), filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(users, total, params)
	utils.PaginatedResponse(c, result)
}

// PUT /admin/users/:id/expert
func (h *AdminHandler) SetVerifiedExpert(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		IsVerifiedExpert *bool `json:"is_verified_expert" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.SetVerifiedExpert(c.Request.Context(), actor, c.Param("id"), *req.IsVerifiedExpert)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// POST /admin/users/:id/reputation/recalculate
func (h *AdminHandler) RecalculateReputation(c *gin.Context) {
	change, err := h.reputationService.RecalculateReputation(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	if change == nil {
		utils.NotFoundResponse(c, "user")
		return
	}

	utils.SuccessResponse(c, change)
}

// GET /admin/products
func (h *AdminHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := services.AdminProductFilter{PaginationParams: params}
	if status := c.Query("admin_status"); status != "" {
		s := models.AdminStatus(status)
		filter.AdminStatus = &s
	}

	products, total, err := h.adminService.GetProducts(c.Request.Context(), filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}

// PUT /admin/products/:id/approve
func (h *AdminHandler) ApproveProduct(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.adminService.ApproveProduct(c.Request.Context(), actor, id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyProductApproved),
	})
}

// PUT /admin/products/:id/reject
func (h *AdminHandler) RejectProduct(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.adminService.RejectProduct(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyProductRejected),
	})
}

// GET /admin/logs
func (h *AdminHandler) GetAdminLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := services.AdminLogFilter{
		PaginationParams: params,
		Action:           c.Query("action"),
		TargetType:       c.Query("target_type"),
		TargetID:         c.Query("target_id"),
	}
	if createdAfter := c.Query("created_after"); createdAfter != "" {
		if t, err := time.Parse("2006-01-02", createdAfter); err == nil {
			filter.CreatedAfter = &t
		}
	}

	logs, total, err := h.adminService.GetAdminLogs(c.Request.Context(), filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
