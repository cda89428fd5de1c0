// internal/handlers/vote.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type VoteHandler struct {
	voteService *services.VoteService
}

func NewVoteHandler(voteService *services.VoteService) *VoteHandler {
	return &VoteHandler{
		voteService: voteService,
	}
}

// POST /content/:type/:id/votes
func (h *VoteHandler) CastVote(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	contentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.voteService.CastVote(c.Request.Context(), actor.UserID, models.ContentType(c.Param("type")), contentID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// DELETE /content/:type/:id/votes
func (h *VoteHandler) RemoveVote(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	contentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.voteService.RemoveVote(c.Request.Context(), actor.UserID, models.ContentType(c.Param("type")), contentID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}
