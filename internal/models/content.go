// internal/models/content.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Moderation holds the flag state shared by every piece of community content.
type Moderation struct {
	IsFlagged bool `json:"is_flagged" gorm:"not null;default:false;index"`
	FlagCount int  `json:"flag_count" gorm:"not null;default:0"`
}

type Discussion struct {
	BaseModel
	AuthorID    string `json:"author_id" gorm:"size:128;not null;index"`
	Title       string `json:"title" gorm:"size:255;not null"`
	Body        string `json:"body" gorm:"type:text"`
	UpvoteCount int    `json:"upvote_count" gorm:"not null;default:0"`
	Moderation

	// Relationships
	Author   *User               `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Comments []DiscussionComment `json:"comments,omitempty" gorm:"foreignKey:DiscussionID"`
}

type DiscussionComment struct {
	BaseModel
	DiscussionID uuid.UUID `json:"discussion_id" gorm:"type:uuid;not null;index"`
	AuthorID     string    `json:"author_id" gorm:"size:128;not null;index"`
	Body         string    `json:"body" gorm:"type:text;not null"`
	UpvoteCount  int       `json:"upvote_count" gorm:"not null;default:0"`
	Moderation
}

type ProductComment struct {
	BaseModel
	ProductID   uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	AuthorID    string    `json:"author_id" gorm:"size:128;not null;index"`
	Body        string    `json:"body" gorm:"type:text;not null"`
	UpvoteCount int       `json:"upvote_count" gorm:"not null;default:0"`
	Moderation
}

type ProductReview struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	AuthorID  string    `json:"author_id" gorm:"size:128;not null;index"`
	Score     int       `json:"score" gorm:"not null"`
	Body      string    `json:"body" gorm:"type:text"`
	Moderation
}

// Vote is unique per (voter, content, content type). Votes are hard-deleted
// when withdrawn so the same voter may vote again later.
type Vote struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	VoterID     string      `json:"voter_id" gorm:"size:128;not null;uniqueIndex:idx_votes_voter_content,priority:1"`
	ContentID   uuid.UUID   `json:"content_id" gorm:"type:uuid;not null;uniqueIndex:idx_votes_voter_content,priority:2;index"`
	ContentType ContentType `json:"content_type" gorm:"type:varchar(30);not null;uniqueIndex:idx_votes_voter_content,priority:3"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
