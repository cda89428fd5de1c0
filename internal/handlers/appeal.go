// internal/handlers/appeal.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type AppealHandler struct {
	appealService *services.AppealService
}

func NewAppealHandler(appealService *services.AppealService) *AppealHandler {
	return &AppealHandler{
		appealService: appealService,
	}
}

// POST /appeals
func (h *AppealHandler) SubmitAppeal(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.SubmitAppealRequest
	if !bindJSON(c, &req) {
		return
	}

	appeal, err := h.appealService.SubmitAppeal(c.Request.Context(), actor, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, appeal)
}

// GET /admin/appeals
func (h *AppealHandler) ListAppeals(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filter := services.AppealFilter{PaginationParams: utils.GetPaginationParams(c)}
	if status := c.Query("status"); status != "" {
		s := models.AppealStatus(status)
		filter.Status = &s
	}

	appeals, total, err := h.appealService.ListAppeals(c.Request.Context(), actor, filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(appeals, total, filter.PaginationParams))
}

// PUT /admin/appeals/:id/approve
func (h *AppealHandler) ApproveAppeal(c *gin.Context) {
	h.resolve(c, h.appealService.ApproveAppeal)
}

// PUT /admin/appeals/:id/reject
func (h *AppealHandler) RejectAppeal(c *gin.Context) {
	h.resolve(c, h.appealService.RejectAppeal)
}

func (h *AppealHandler) resolve(c *gin.Context, fn func(ctx context.Context, actor services.Actor, id uuid.UUID, notes string) (*models.AppealRequest, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req notesRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	appeal, err := fn(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, appeal)
}
