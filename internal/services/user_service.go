// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

type UserService struct {
	db         *gorm.DB
	reputation *ReputationService
	badges     *BadgeService
}

// Identity is the subset of identity-provider claims mirrored locally.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

type UpdateUserProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=100"`
}

// PublicProfile is the trust summary shown next to a user's content.
type PublicProfile struct {
	ID              string             `json:"id"`
	DisplayName     string             `json:"display_name"`
	ReputationScore int                `json:"reputation_score"`
	IsSME           bool               `json:"is_sme"`
	BadgeType       *string            `json:"badge_type,omitempty"`
	Badges          []models.UserBadge `json:"badges"`
}

func NewUserService(db *gorm.DB, reputation *ReputationService, badges *BadgeService) *UserService {
	return &UserService{
		db:         db,
		reputation: reputation,
		badges:     badges,
	}
}

// EnsureUser creates the local row for an authenticated identity on first
// sight and keeps email in step with the identity provider afterwards.
func (s *UserService) EnsureUser(ctx context.Context, identity Identity) (*models.User, error) {
	if identity.UserID == "" {
		return nil, ErrUnauthorized
	}

	db := s.db.WithContext(ctx)
	existing, err := loadUser(db, identity.UserID)
	switch {
	case err == nil && (identity.Email == "" || existing.Email == identity.Email):
		return existing, nil
	case err != nil && !errors.Is(err, ErrUserNotFound):
		return nil, err
	}

	displayName := strings.TrimSpace(identity.DisplayName)
	if displayName == "" {
		displayName = strings.Split(identity.Email, "@")[0]
	}

	user := models.User{
		ID:          identity.UserID,
		Email:       identity.Email,
		DisplayName: displayName,
		Role:        models.UserRoleStandard,
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}

	return s.GetUser(ctx, identity.UserID)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return loadUser(s.db.WithContext(ctx), userID)
}

func (s *UserService) GetPublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Select("id, display_name, reputation_score, is_sme, badge_type").
		Preload("Badges", func(db *gorm.DB) *gorm.DB { return db.Order("earned_at ASC") }).
		Preload("Badges.Badge").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	badges := user.Badges
	if badges == nil {
		badges = []models.UserBadge{}
	}

	return &PublicProfile{
		ID:              user.ID,
		DisplayName:     user.DisplayName,
		ReputationScore: user.ReputationScore,
		IsSME:           user.IsSME,
		BadgeType:       user.BadgeType,
		Badges:          badges,
	}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateUserProfileRequest) (*models.User, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	user, err := loadUser(db, userID)
	if err != nil {
		return nil, err
	}

	if err := db.Model(user).Update("display_name", req.DisplayName).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.DisplayName = req.DisplayName

	return user, nil
}

// Refresh recomputes the caller's reputation and badges. Both are
// idempotent, so this is safe to call at any time.
func (s *UserService) Refresh(ctx context.Context, userID string) (*models.User, []string, error) {
	if _, err := s.reputation.RecalculateReputation(ctx, userID); err != nil {
		return nil, nil, err
	}

	awarded, err := s.badges.EvaluateAndAwardBadges(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, awarded, nil
}

// Leaderboard returns the highest-reputation users.
func (s *UserService) Leaderboard(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("reputation_score > 0")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := utils.ApplyPagination(query.Select("id, display_name, reputation_score, is_sme, badge_type").
		Order("reputation_score DESC").Order("id ASC"), params).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}

	return users, total, nil
}
