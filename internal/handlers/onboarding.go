// internal/handlers/onboarding.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type OnboardingHandler struct {
	onboardingService *services.OnboardingService
}

func NewOnboardingHandler(onboardingService *services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{
		onboardingService: onboardingService,
	}
}

// POST /products/:id/claim
func (h *OnboardingHandler) SubmitBrandClaim(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	onboarding, err := h.onboardingService.SubmitBrandClaim(c.Request.Context(), actor, productID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, onboarding)
}

// POST /products/:id/edits
func (h *OnboardingHandler) SubmitProductEdit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var patch models.ProductPatch
	if !bindJSON(c, &patch) {
		return
	}

	onboarding, err := h.onboardingService.SubmitProductEdit(c.Request.Context(), actor, productID, patch)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, onboarding)
}

// GET /admin/onboardings
func (h *OnboardingHandler) ListOnboardings(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filter := services.OnboardingFilter{PaginationParams: utils.GetPaginationParams(c)}
	if status := c.Query("status"); status != "" {
		s := models.OnboardingStatus(status)
		filter.Status = &s
	}
	if submissionType := c.Query("submission_type"); submissionType != "" {
		t := models.SubmissionType(submissionType)
		filter.SubmissionType = &t
	}

	onboardings, total, err := h.onboardingService.ListOnboardings(c.Request.Context(), actor, filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(onboardings, total, filter.PaginationParams))
}

// PUT /admin/onboardings/:id/approve
func (h *OnboardingHandler) ApproveOnboarding(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.onboardingService.ApproveOnboarding(c.Request.Context(), actor, id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessWithWarningsResponse(c, result, translateWarnings(c, result.Warnings))
}

// PUT /admin/onboardings/:id/reject
func (h *OnboardingHandler) RejectOnboarding(c *gin.Context) {
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

	onboarding, err := h.onboardingService.RejectOnboarding(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, onboarding)
}
