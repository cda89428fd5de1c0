// internal/services/vote_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/models"
)

type VoteService struct {
	db         *gorm.DB
	reputation *ReputationService
	badges     *BadgeService
}

type VoteResult struct {
	ContentID     uuid.UUID          `json:"content_id"`
	ContentType   models.ContentType `json:"content_type"`
	AuthorID      string             `json:"author_id"`
	Reputation    *ReputationChange  `json:"reputation,omitempty"`
	AwardedBadges []string           `json:"awarded_badges,omitempty"`
}

func NewVoteService(db *gorm.DB, reputation *ReputationService, badges *BadgeService) *VoteService {
	return &VoteService{
		db:         db,
		reputation: reputation,
		badges:     badges,
	}
}

// CastVote records an upvote and recomputes the author's reputation and
// badges in the same transaction.
func (s *VoteService) CastVote(ctx context.Context, voterID string, contentType models.ContentType, contentID uuid.UUID) (*VoteResult, error) {
	if voterID == "" {
		return nil, ErrUnauthorized
	}
	if !contentType.Votable() {
		return nil, ErrInvalidContentType
	}

	return s.apply(ctx, contentType, contentID, func(tx *gorm.DB, content *contentRef) error {
		if content.AuthorID == voterID {
			return ErrSelfVote
		}

		var existing int64
		if err := tx.Model(&models.Vote{}).
			Where("voter_id = ? AND content_id = ? AND content_type = ?", voterID, contentID, contentType).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing vote: %w", err)
		}
		if existing > 0 {
			return ErrVoteAlreadyCast
		}

		vote := &models.Vote{VoterID: voterID, ContentID: contentID, ContentType: contentType}
		if err := tx.Create(vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrVoteAlreadyCast
			}
			return fmt.Errorf("failed to record vote: %w", err)
		}

		return s.adjustUpvotes(tx, contentType, contentID, gorm.Expr("upvote_count + 1"))
	})
}

// RemoveVote withdraws an upvote. Badges already earned are kept.
func (s *VoteService) RemoveVote(ctx context.Context, voterID string, contentType models.ContentType, contentID uuid.UUID) (*VoteResult, error) {
	if voterID == "" {
		return nil, ErrUnauthorized
	}
	if !contentType.Votable() {
		return nil, ErrInvalidContentType
	}

	return s.apply(ctx, contentType, contentID, func(tx *gorm.DB, content *contentRef) error {
		result := tx.Where("voter_id = ? AND content_id = ? AND content_type = ?", voterID, contentID, contentType).
			Delete(&models.Vote{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove vote: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrVoteNotFound
		}

		return s.adjustUpvotes(tx, contentType, contentID, gorm.Expr("CASE WHEN upvote_count > 0 THEN upvote_count - 1 ELSE 0 END"))
	})
}

func (s *VoteService) apply(ctx context.Context, contentType models.ContentType, contentID uuid.UUID, mutate func(*gorm.DB, *contentRef) error) (*VoteResult, error) {
	result := &VoteResult{ContentID: contentID, ContentType: contentType}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		content, err := loadContent(tx, contentType, contentID)
		if err != nil {
			return err
		}
		result.AuthorID = content.AuthorID

		if err := mutate(tx, content); err != nil {
			return err
		}

		result.Reputation, err = s.reputation.RecalculateReputationTx(tx, content.AuthorID)
		if err != nil {
			return err
		}

		result.AwardedBadges, err = s.badges.EvaluateAndAwardBadgesTx(tx, content.AuthorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordSMETransition(result.Reputation)
	recordBadgeAwards(result.AwardedBadges)
	return result, nil
}

func (s *VoteService) adjustUpvotes(tx *gorm.DB, contentType models.ContentType, contentID uuid.UUID, expr interface{}) error {
	model, err := contentModel(contentType)
	if err != nil {
		return err
	}

	if err := tx.Model(model).Where("id = ?", contentID).UpdateColumn("upvote_count", expr).Error; err != nil {
		return fmt.Errorf("failed to update upvote count: %w", err)
	}
	return nil
}
