// internal/services/reputation_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
)

type ReputationService struct {
	db            *gorm.DB
	audit         *AuditService
	notifications NotificationSink
	threshold     int
}

// ReputationChange describes the effect of one recompute.
type ReputationChange struct {
	UserID   string `json:"user_id"`
	OldScore int    `json:"old_score"`
	NewScore int    `json:"new_score"`
	WasSME   bool   `json:"old_sme_status"`
	IsSME    bool   `json:"new_sme_status"`
}

func (c *ReputationChange) SMEChanged() bool {
	return c.WasSME != c.IsSME
}

func NewReputationService(db *gorm.DB, audit *AuditService, notifications NotificationSink, threshold int) *ReputationService {
	if threshold <= 0 {
		threshold = models.SMEThreshold
	}
	return &ReputationService{
		db:            db,
		audit:         audit,
		notifications: notifications,
		threshold:     threshold,
	}
}

func (s *ReputationService) Threshold() int {
	return s.threshold
}

// RecalculateReputation recomputes userID's score from authored content and
// reconciles SME status. Unknown users are a no-op and return nil.
func (s *ReputationService) RecalculateReputation(ctx context.Context, userID string) (*ReputationChange, error) {
	var change *ReputationChange
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		change, err = s.RecalculateReputationTx(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordSMETransition(change)
	return change, nil
}

// RecalculateReputationTx is RecalculateReputation inside a caller-owned
// transaction. The caller records metrics after commit.
func (s *ReputationService) RecalculateReputationTx(tx *gorm.DB, userID string) (*ReputationChange, error) {
	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("user_id", userID).Debug("Reputation recompute skipped for unknown user")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	score, err := authoredUpvotes(tx, userID)
	if err != nil {
		return nil, err
	}

	change := &ReputationChange{
		UserID:   userID,
		OldScore: user.ReputationScore,
		NewScore: score,
		WasSME:   user.IsSME,
	}

	if score != user.ReputationScore {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("reputation_score", score).Error; err != nil {
			return nil, fmt.Errorf("failed to update reputation score: %w", err)
		}
	}

	change.IsSME, err = s.applySMEStatus(tx, &user, score)
	if err != nil {
		return nil, err
	}

	return change, nil
}

// applySMEStatus enforces is_sme == (score >= threshold). It writes the flip,
// its admin log entry, and a notification, and does nothing when the stored
// flag already agrees with the score.
func (s *ReputationService) applySMEStatus(tx *gorm.DB, user *models.User, score int) (bool, error) {
	qualifies := score >= s.threshold
	if qualifies == user.IsSME {
		return user.IsSME, nil
	}

	updates := map[string]interface{}{"is_sme": qualifies}
	action := ActionSMEDemoted
	if qualifies {
		action = ActionSMEPromoted
		if user.BadgeType == nil || *user.BadgeType == "" {
			updates["badge_type"] = models.TrustedVoiceLabel
		}
	} else if user.BadgeType != nil && *user.BadgeType == models.TrustedVoiceLabel {
		updates["badge_type"] = nil
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return user.IsSME, fmt.Errorf("failed to update SME status: %w", err)
	}

	details := models.JSONB{
		"reputation_score": score,
		"threshold":        s.threshold,
	}
	if err := s.audit.Record(tx, AuditEntry{
		Action:     action,
		TargetType: "user",
		TargetID:   user.ID,
		Details:    details,
	}); err != nil {
		return user.IsSME, err
	}

	notify(s.notifications, tx, NotificationRequest{
		UserID:     user.ID,
		Type:       models.NotificationTypeSMEStatus,
		TargetID:   user.ID,
		TargetType: "user",
		Metadata:   models.JSONB{"is_sme": qualifies, "reputation_score": score},
	})

	return qualifies, nil
}

// ReconcileAll recomputes every user. Used by operator tooling after bulk
// content changes.
func (s *ReputationService) ReconcileAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	processed := 0
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			if _, err := s.RecalculateReputation(ctx, id); err != nil {
				return processed, fmt.Errorf("failed to recompute %s: %w", id, err)
			}
			processed++
		}
		logrus.WithField("processed", processed).Info("Reputation reconcile progress")
	}

	return processed, nil
}

// authoredUpvotes sums upvote_count over every votable item authored by
// userID. Soft-deleted content does not count.
func authoredUpvotes(tx *gorm.DB, userID string) (int, error) {
	sources := []interface{}{
		&models.Discussion{},
		&models.DiscussionComment{},
		&models.ProductComment{},
	}

	total := 0
	for _, model := range sources {
		var sum int64
		err := tx.Model(model).
			Where("author_id = ?", userID).
			Select("COALESCE(SUM(upvote_count), 0)").
			Scan(&sum).Error
		if err != nil {
			return 0, fmt.Errorf("failed to sum upvotes: %w", err)
		}
		total += int(sum)
	}

	if total < 0 {
		total = 0
	}
	return total, nil
}

func recordSMETransition(change *ReputationChange) {
	if change == nil || !change.SMEChanged() {
		return
	}
	if change.IsSME {
		metrics.RecordTransition(ActionSMEPromoted)
	} else {
		metrics.RecordTransition(ActionSMEDemoted)
	}
}
