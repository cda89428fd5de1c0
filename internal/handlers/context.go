// internal/handlers/context.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

// actorFromContext builds the acting identity set by middleware.AuthRequired.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists || userID == "" {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, IsAdmin: utils.IsAdminFromContext(c)}, true
}

// optionalActor returns the caller when a token was presented, or the zero
// Actor for anonymous requests.
func optionalActor(c *gin.Context) services.Actor {
	userID, _ := utils.GetUserIDFromContext(c)
	return services.Actor{UserID: userID, IsAdmin: utils.IsAdminFromContext(c)}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid), gin.H{name: c.Param(name)})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid), err.Error())
		return false
	}
	return true
}

// translateWarnings renders warning keys in the request language.
func translateWarnings(c *gin.Context, warnings []string) []string {
	if len(warnings) == 0 {
		return nil
	}
	lang := utils.GetLangFromContext(c)
	out := make([]string, len(warnings))
	for i, key := range warnings {
		out[i] = i18n.T(lang, key)
	}
	return out
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}
