// internal/services/badge_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
)

type BadgeService struct {
	db            *gorm.DB
	notifications NotificationSink
	now           func() time.Time
}

type BadgeProgress struct {
	Badge     models.Badge `json:"badge"`
	Current   int          `json:"current"`
	Threshold int          `json:"threshold"`
	Earned    bool         `json:"earned"`
	EarnedAt  *time.Time   `json:"earned_at,omitempty"`
}

func NewBadgeService(db *gorm.DB, notifications NotificationSink) *BadgeService {
	return &BadgeService{
		db:            db,
		notifications: notifications,
		now:           time.Now,
	}
}

// WithClock replaces the time source used for account-age criteria.
func (s *BadgeService) WithClock(now func() time.Time) *BadgeService {
	s.now = now
	return s
}

// EvaluateAndAwardBadges awards every active badge whose criterion the user
// now meets and returns the ids newly awarded by this call.
func (s *BadgeService) EvaluateAndAwardBadges(ctx context.Context, userID string) ([]string, error) {
	var awarded []string
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		awarded, err = s.EvaluateAndAwardBadgesTx(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordBadgeAwards(awarded)
	return awarded, nil
}

// EvaluateAll runs badge evaluation for every user with up to workers
// evaluations in flight. It returns the number of badges newly awarded.
func (s *BadgeService) EvaluateAll(ctx context.Context, workers int) (int, error) {
	if workers <= 0 {
		workers = 4
	}

	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	var awarded atomic.Int64
	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers)
	for _, id := range ids {
		userID := id
		p.Go(func(ctx context.Context) error {
			badges, err := s.EvaluateAndAwardBadges(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to evaluate %s: %w", userID, err)
			}
			awarded.Add(int64(len(badges)))
			return nil
		})
	}

	err := p.Wait()
	logrus.WithFields(logrus.Fields{
		"users":   len(ids),
		"awarded": awarded.Load(),
	}).Info("Badge evaluation sweep completed")
	return int(awarded.Load()), err
}

// EvaluateAndAwardBadgesTx runs the evaluation inside tx. Awards use
// ON CONFLICT DO NOTHING; only the insert that actually lands notifies, so
// concurrent evaluations award and notify once.
func (s *BadgeService) EvaluateAndAwardBadgesTx(tx *gorm.DB, userID string) ([]string, error) {
	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	held, err := heldBadges(tx, userID)
	if err != nil {
		return nil, err
	}

	var catalog []models.Badge
	if err := tx.Where("is_active = ?", true).Order("id").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("failed to load badge catalog: %w", err)
	}

	now := s.now()
	counter := newCriteriaCounter(tx, &user, now)

	var awarded []string
	for _, badge := range catalog {
		if _, ok := held[badge.ID]; ok {
			continue
		}

		value, err := counter.value(badge.Criteria.Type)
		if errors.Is(err, errUnknownCriteria) {
			skipBadge(badge, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if value < badge.Criteria.Threshold {
			continue
		}

		award := models.UserBadge{
			UserID:   userID,
			BadgeID:  badge.ID,
			EarnedAt: now,
			Progress: value,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&award)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to award badge %s: %w", badge.ID, result.Error)
		}
		if result.RowsAffected != 1 {
			continue
		}

		awarded = append(awarded, badge.ID)
		notify(s.notifications, tx, NotificationRequest{
			UserID:     userID,
			Type:       models.NotificationTypeBadge,
			TargetID:   badge.ID,
			TargetType: "badge",
			Metadata:   models.JSONB{"badge_name": badge.Name, "rarity": badge.Rarity},
		})
	}

	return awarded, nil
}

// Progress reports the user's standing against every active badge.
func (s *BadgeService) Progress(ctx context.Context, userID string) ([]BadgeProgress, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var catalog []models.Badge
	if err := db.Where("is_active = ?", true).Order("category, criteria_threshold").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("failed to load badge catalog: %w", err)
	}

	var earned []models.UserBadge
	if err := db.Where("user_id = ?", userID).Find(&earned).Error; err != nil {
		return nil, fmt.Errorf("failed to load user badges: %w", err)
	}
	earnedAt := make(map[string]time.Time, len(earned))
	for _, ub := range earned {
		earnedAt[ub.BadgeID] = ub.EarnedAt
	}

	counter := newCriteriaCounter(db, &user, s.now())
	progress := make([]BadgeProgress, 0, len(catalog))
	for _, badge := range catalog {
		value, err := counter.value(badge.Criteria.Type)
		if errors.Is(err, errUnknownCriteria) {
			skipBadge(badge, err)
			continue
		}
		if err != nil {
			return nil, err
		}

		p := BadgeProgress{
			Badge:     badge,
			Current:   value,
			Threshold: badge.Criteria.Threshold,
		}
		if at, ok := earnedAt[badge.ID]; ok {
			at := at
			p.Earned = true
			p.EarnedAt = &at
		}
		progress = append(progress, p)
	}

	return progress, nil
}

func (s *BadgeService) ListUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.db.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&badges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}
	return badges, nil
}

func heldBadges(tx *gorm.DB, userID string) (map[string]struct{}, error) {
	var ids []string
	if err := tx.Model(&models.UserBadge{}).Where("user_id = ?", userID).Pluck("badge_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load held badges: %w", err)
	}

	held := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		held[id] = struct{}{}
	}
	return held, nil
}

var errUnknownCriteria = errors.New("unknown badge criteria")

// criteriaCounter computes each criterion at most once per evaluation.
type criteriaCounter struct {
	db    *gorm.DB
	user  *models.User
	now   time.Time
	cache map[models.BadgeCriteriaType]int
}

func newCriteriaCounter(db *gorm.DB, user *models.User, now time.Time) *criteriaCounter {
	return &criteriaCounter{
		db:    db,
		user:  user,
		now:   now,
		cache: make(map[models.BadgeCriteriaType]int),
	}
}

func (c *criteriaCounter) value(criteria models.BadgeCriteriaType) (int, error) {
	if v, ok := c.cache[criteria]; ok {
		return v, nil
	}

	var (
		v   int
		err error
	)
	switch criteria {
	case models.CriteriaDiscussionsCreated:
		v, err = c.count(&models.Discussion{})
	case models.CriteriaCommentsPosted:
		var discussion, product int
		if discussion, err = c.count(&models.DiscussionComment{}); err == nil {
			product, err = c.count(&models.ProductComment{})
		}
		v = discussion + product
	case models.CriteriaUpvotesReceived:
		v, err = authoredUpvotes(c.db, c.user.ID)
	case models.CriteriaProductReviews:
		v, err = c.count(&models.ProductReview{})
	case models.CriteriaAccountAgeDays:
		if c.now.After(c.user.CreatedAt) {
			v = int(c.now.Sub(c.user.CreatedAt).Hours() / 24)
		}
	default:
		return 0, fmt.Errorf("%w %q", errUnknownCriteria, criteria)
	}
	if err != nil {
		return 0, err
	}

	c.cache[criteria] = v
	return v, nil
}

func (c *criteriaCounter) count(model interface{}) (int, error) {
	var n int64
	if err := c.db.Model(model).Where("author_id = ?", c.user.ID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count authored content: %w", err)
	}
	return int(n), nil
}

func skipBadge(badge models.Badge, err error) {
	logrus.WithFields(logrus.Fields{
		"badge_id": badge.ID,
		"criteria": badge.Criteria.Type,
	}).WithError(err).Warn("Skipping badge with unsupported criteria")
}

func recordBadgeAwards(badgeIDs []string) {
	for _, id := range badgeIDs {
		metrics.RecordBadgeAward(id)
	}
}
