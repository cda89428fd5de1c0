// internal/models/appeal.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// AppealRequest contests a moderation flag on a piece of content. At most one
// pending appeal may exist per content item.
type AppealRequest struct {
	BaseModel
	ContentType ContentType  `json:"content_type" gorm:"type:varchar(30);not null;index:idx_appeals_content,priority:1"`
	ContentID   uuid.UUID    `json:"content_id" gorm:"type:uuid;not null;index:idx_appeals_content,priority:2"`
	AppellantID string       `json:"appellant_id" gorm:"size:128;not null;index"`
	Reason      string       `json:"reason" gorm:"type:text;not null"`
	Status      AppealStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ReviewedBy  *string      `json:"reviewed_by" gorm:"size:128"`
	AdminNotes  string       `json:"admin_notes,omitempty" gorm:"type:text"`
	ReviewedAt  *time.Time   `json:"reviewed_at"`
}
