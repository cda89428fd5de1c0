// internal/services/pipeline.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

// validateRequest runs struct validation and converts failures into a
// ValidationFailed error carrying per-field details.
func validateRequest(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		return NewValidationError(i18n.KeyValidationInvalid, "request validation failed", utils.GetValidationErrors(err))
	}
	return nil
}

func validateReason(reason string, min int) error {
	if utils.TrimmedLength(reason) < min {
		return NewValidationError(i18n.KeyReasonTooShort, fmt.Sprintf("reason must be at least %d characters", min), []utils.ValidationError{{
			Field:   "reason",
			Tag:     "reason",
			Message: fmt.Sprintf("reason must be at least %d characters", min),
		}})
	}
	return nil
}

func loadProduct(tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

func loadUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// promoteToBrandRep sets role=brand_rep unless the user is an admin.
func promoteToBrandRep(tx *gorm.DB, user *models.User) error {
	if user.Role != models.UserRoleStandard {
		return nil
	}
	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("role", models.UserRoleBrandRep).Error; err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	user.Role = models.UserRoleBrandRep
	return nil
}

// isUniqueViolation reports a storage-level uniqueness conflict.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
