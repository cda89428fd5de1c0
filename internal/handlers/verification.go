// internal/handlers/verification.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type VerificationHandler struct {
	verificationService *services.VerificationService
}

func NewVerificationHandler(verificationService *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
	}
}

// POST /brand/verifications
func (h *VerificationHandler) RequestVerification(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.RequestVerificationRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.verificationService.RequestVerification(c.Request.Context(), actor, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedWithWarningsResponse(c, result, translateWarnings(c, result.Warnings))
}

// GET /brand/verifications
func (h *VerificationHandler) ListMine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	verifications, err := h.verificationService.ListForUser(c.Request.Context(), actor)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, verifications)
}

// GET /admin/verifications
func (h *VerificationHandler) ListVerifications(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filter := services.VerificationFilter{PaginationParams: utils.GetPaginationParams(c)}
	if status := c.Query("status"); status != "" {
		s := models.VerificationStatus(status)
		filter.Status = &s
	}

	verifications, total, err := h.verificationService.ListVerifications(c.Request.Context(), actor, filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(verifications, total, filter.PaginationParams))
}

// PUT /admin/verifications/:id/approve
func (h *VerificationHandler) ApproveVerification(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	verification, err := h.verificationService.ApproveVerification(c.Request.Context(), actor, id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, verification)
}

// PUT /admin/verifications/:id/reject
func (h *VerificationHandler) RejectVerification(c *gin.Context) {
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

	verification, err := h.verificationService.RejectVerification(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, verification)
}
