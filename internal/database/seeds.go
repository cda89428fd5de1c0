// internal/database/seeds.go
package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labtrust/trust-engine/internal/models"
)

// BadgeCatalog is the static badge reference data.
func BadgeCatalog() []models.Badge {
	return []models.Badge{
		{
			ID:          "first-discussion",
			Name:        "Conversation Starter",
			Description: "Started your first discussion",
			Category:    "community",
			Rarity:      "common",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaDiscussionsCreated, Threshold: 1},
		},
		{
			ID:          "discussion-leader",
			Name:        "Discussion Leader",
			Description: "Started 25 discussions",
			Category:    "community",
			Rarity:      "rare",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaDiscussionsCreated, Threshold: 25},
		},
		{
			ID:          "commenter",
			Name:        "Commenter",
			Description: "Posted 10 comments",
			Category:    "community",
			Rarity:      "common",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaCommentsPosted, Threshold: 10},
		},
		{
			ID:          "helpful-voice",
			Name:        "Helpful Voice",
			Description: "Received 50 upvotes",
			Category:    "reputation",
			Rarity:      "uncommon",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaUpvotesReceived, Threshold: 50},
		},
		{
			ID:          "trusted-voice",
			Name:        "Trusted Voice",
			Description: "Received 100 upvotes",
			Category:    "reputation",
			Rarity:      "rare",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaUpvotesReceived, Threshold: models.SMEThreshold},
		},
		{
			ID:          "first-review",
			Name:        "First Review",
			Description: "Reviewed your first product",
			Category:    "reviews",
			Rarity:      "common",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaProductReviews, Threshold: 1},
		},
		{
			ID:          "seasoned-reviewer",
			Name:        "Seasoned Reviewer",
			Description: "Reviewed 20 products",
			Category:    "reviews",
			Rarity:      "rare",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaProductReviews, Threshold: 20},
		},
		{
			ID:          "one-year-member",
			Name:        "One Year Member",
			Description: "Member for a year",
			Category:    "tenure",
			Rarity:      "uncommon",
			Criteria:    models.BadgeCriteria{Type: models.CriteriaAccountAgeDays, Threshold: 365},
		},
	}
}

// SeedBadgeCatalog upserts the badge catalog. Existing rows get their
// descriptive fields refreshed; user awards are untouched.
func SeedBadgeCatalog(db *gorm.DB) error {
	logrus.Info("Seeding badge catalog...")

	badges := BadgeCatalog()
	for i := range badges {
		badges[i].IsActive = true
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "category", "rarity",
			"criteria_type", "criteria_threshold", "is_active", "updated_at",
		}),
	}).Create(&badges).Error
	if err != nil {
		return fmt.Errorf("failed to seed badge catalog: %w", err)
	}

	logrus.WithField("badges", len(badges)).Info("Badge catalog seeding completed")
	return nil
}
