// internal/handlers/certification.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type CertificationHandler struct {
	certificationService *services.CertificationService
}

func NewCertificationHandler(certificationService *services.CertificationService) *CertificationHandler {
	return &CertificationHandler{
		certificationService: certificationService,
	}
}

// POST /brand/certifications
func (h *CertificationHandler) SubmitCertification(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.SubmitCertificationRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.certificationService.SubmitCertification(c.Request.Context(), actor, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedWithWarningsResponse(c, result, translateWarnings(c, result.Warnings))
}

// POST /brand/certifications/evidence
func (h *CertificationHandler) RequestEvidenceUpload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		ProductID uuid.UUID `json:"product_id" binding:"required"`
		Filename  string    `json:"filename" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	upload, err := h.certificationService.RequestEvidenceUpload(c.Request.Context(), actor, req.ProductID, req.Filename)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, upload)
}

// PUT /brand/certifications/:id/resubmit
func (h *CertificationHandler) ResubmitCertification(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ResubmitCertificationRequest
	if !bindJSON(c, &req) {
		return
	}

	cert, err := h.certificationService.ResubmitCertification(c.Request.Context(), actor, id, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cert)
}

// GET /certifications/:id
func (h *CertificationHandler) GetCertification(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	cert, err := h.certificationService.GetCertification(c.Request.Context(), actor, id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cert)
}

// GET /review/certifications
func (h *CertificationHandler) ListCertifications(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filter := services.CertificationFilter{PaginationParams: utils.GetPaginationParams(c)}
	if status := c.Query("status"); status != "" {
		s := models.CertificationStatus(status)
		filter.Status = &s
	}

	certs, total, err := h.certificationService.ListCertifications(c.Request.Context(), actor, filter)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(certs, total, filter.PaginationParams))
}

// PUT /review/certifications/:id/approve
func (h *CertificationHandler) ApproveCertification(c *gin.Context) {
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

	cert, err := h.certificationService.ApproveCertification(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cert)
}

// PUT /review/certifications/:id/reject
func (h *CertificationHandler) RejectCertification(c *gin.Context) {
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

	cert, err := h.certificationService.RejectCertification(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cert)
}

// PUT /review/certifications/:id/request-info
func (h *CertificationHandler) RequestMoreInfo(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req notesRequest
	if !bindJSON(c, &req) {
		return
	}

	cert, err := h.certificationService.RequestMoreInfo(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cert)
}
