// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type UserHandler struct {
	userService  *services.UserService
	badgeService *services.BadgeService
	authz        *services.AuthorizationService
}

func NewUserHandler(userService *services.UserService, badgeService *services.BadgeService, authz *services.AuthorizationService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		badgeService: badgeService,
		authz:        authz,
	}
}

// GET /me
func (h *UserHandler) GetMe(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), actor.UserID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	capabilities, err := h.authz.Capabilities(c.Request.Context(), actor)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user":         user,
		"capabilities": capabilities,
	})
}

// PUT /me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.UpdateUserProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// POST /me/refresh
func (h *UserHandler) Refresh(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	user, awarded, err := h.userService.Refresh(c.Request.Context(), actor.UserID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user":           user,
		"awarded_badges": awarded,
	})
}

// GET /me/badges/progress
func (h *UserHandler) GetBadgeProgress(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	progress, err := h.badgeService.Progress(c.Request.Context(), actor.UserID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, progress)
}

// GET /users/:id
func (h *UserHandler) GetPublicProfile(c *gin.Context) {
	profile, err := h.userService.GetPublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, profile)
}

// GET /users/:id/badges
func (h *UserHandler) GetUserBadges(c *gin.Context) {
	badges, err := h.badgeService.ListUserBadges(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, badges)
}

// GET /leaderboard
func (h *UserHandler) GetLeaderboard(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.userService.Leaderboard(c.Request.Context(), params)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}
