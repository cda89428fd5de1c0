// internal/services/authorization_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/models"
)

// AuthorizationService resolves what an actor may do. Identity-provider
// admin claims are honoured directly; otherwise the stored role decides.
type AuthorizationService struct {
	db *gorm.DB
}

type Capabilities struct {
	IsAdmin                bool `json:"is_admin"`
	CanReviewCertification bool `json:"can_review_certification"`
	IsBrandRep             bool `json:"is_brand_rep"`
}

func NewAuthorizationService(db *gorm.DB) *AuthorizationService {
	return &AuthorizationService{db: db}
}

func (s *AuthorizationService) RequireAdmin(tx *gorm.DB, actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if actor.IsAdmin {
		return nil
	}

	user, err := s.loadActor(tx, actor)
	if err != nil {
		return err
	}
	if user == nil || !user.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// RequireReviewer admits admins and verified experts to SME certification
// review.
func (s *AuthorizationService) RequireReviewer(tx *gorm.DB, actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if actor.IsAdmin {
		return nil
	}

	user, err := s.loadActor(tx, actor)
	if err != nil {
		return err
	}
	if user == nil || !user.CanReviewCertifications() {
		return ErrReviewerRequired
	}
	return nil
}

func (s *AuthorizationService) RequireBrandOwner(product *models.Product, actor Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if !product.OwnedBy(actor.UserID) {
		return ErrNotBrandOwner
	}
	return nil
}

func (s *AuthorizationService) Capabilities(ctx context.Context, actor Actor) (*Capabilities, error) {
	caps := &Capabilities{IsAdmin: actor.IsAdmin}
	if !actor.Authenticated() {
		return caps, nil
	}

	user, err := s.loadActor(s.db.WithContext(ctx), actor)
	if err != nil {
		return nil, err
	}
	if user != nil {
		caps.IsAdmin = caps.IsAdmin || user.IsAdmin()
		caps.CanReviewCertification = caps.IsAdmin || user.CanReviewCertifications()
		caps.IsBrandRep = user.Role == models.UserRoleBrandRep
	} else {
		caps.CanReviewCertification = caps.IsAdmin
	}
	return caps, nil
}

func (s *AuthorizationService) loadActor(tx *gorm.DB, actor Actor) (*models.User, error) {
	var user models.User
	if err := tx.Where("id = ?", actor.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	return &user, nil
}
