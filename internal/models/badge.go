// internal/models/badge.go
package models

import (
	"time"
)

type BadgeCriteriaType string

const (
	CriteriaDiscussionsCreated BadgeCriteriaType = "discussions_created"
	CriteriaCommentsPosted     BadgeCriteriaType = "comments_posted"
	CriteriaUpvotesReceived    BadgeCriteriaType = "upvotes_received"
	CriteriaProductReviews     BadgeCriteriaType = "product_reviews"
	CriteriaAccountAgeDays     BadgeCriteriaType = "account_age_days"
)

type BadgeCriteria struct {
	Type      BadgeCriteriaType `json:"type" gorm:"type:varchar(30);not null"`
	Threshold int               `json:"threshold" gorm:"not null"`
}

// Badge is static catalog data; see database.SeedBadgeCatalog.
type Badge struct {
	ID          string        `json:"id" gorm:"primaryKey;size:64"`
	Name        string        `json:"name" gorm:"size:100;not null"`
	Description string        `json:"description" gorm:"type:text"`
	Category    string        `json:"category" gorm:"size:50;not null;index"`
	Rarity      string        `json:"rarity" gorm:"size:20;not null"`
	Criteria    BadgeCriteria `json:"criteria" gorm:"embedded;embeddedPrefix:criteria_"`
	IsActive    bool          `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// UserBadge rows are never deleted once written.
type UserBadge struct {
	UserID   string    `json:"user_id" gorm:"primaryKey;size:128"`
	BadgeID  string    `json:"badge_id" gorm:"primaryKey;size:64"`
	EarnedAt time.Time `json:"earned_at" gorm:"not null"`
	Progress int       `json:"progress" gorm:"not null;default:0"`

	// Relationships
	Badge *Badge `json:"badge,omitempty" gorm:"foreignKey:BadgeID"`
}
