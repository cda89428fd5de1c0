// internal/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

// IdentitySyncer mirrors an authenticated identity into the local store.
type IdentitySyncer interface {
	EnsureUser(ctx context.Context, identity services.Identity) (*models.User, error)
}

// AuthRequired verifies the identity provider's bearer token and places the
// caller's id and admin claim on the context.
func AuthRequired(adminRole string, users IdentitySyncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		claims, key := bearerClaims(c)
		if claims == nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, key), nil)
			c.Abort()
			return
		}

		setIdentity(c, claims, adminRole)

		if users != nil {
			_, err := users.EnsureUser(c.Request.Context(), services.Identity{
				UserID:      claims.Subject,
				Email:       claims.Email,
				DisplayName: claims.Name,
			})
			if err != nil {
				logrus.WithError(err).WithField("user_id", claims.Subject).Error("Failed to sync identity")
				utils.InternalErrorResponse(c, "")
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// AdminRequired admits callers with the admin token role or a stored admin role.
func AdminRequired(authz *services.AuthorizationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		actor := services.Actor{UserID: userID, IsAdmin: utils.IsAdminFromContext(c)}

		if !actor.IsAdmin {
			capabilities, err := authz.Capabilities(c.Request.Context(), actor)
			if err != nil || !capabilities.IsAdmin {
				utils.ForbiddenResponse(c, "")
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(adminRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _ := bearerClaims(c); claims != nil {
			setIdentity(c, claims, adminRole)
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context) (*utils.IdentityClaims, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, i18n.KeyAuthRequired
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, i18n.KeyAuthInvalidToken
	}

	claims, err := utils.ValidateJWT(parts[1])
	if err != nil {
		return nil, i18n.KeyAuthTokenExpired
	}
	return claims, ""
}

func setIdentity(c *gin.Context, claims *utils.IdentityClaims, adminRole string) {
	c.Set("user_id", claims.Subject)
	c.Set("email", claims.Email)
	c.Set("name", claims.Name)
	c.Set("is_admin", adminRole != "" && claims.HasRole(adminRole))
}
