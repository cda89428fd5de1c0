// internal/models/admin.go
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrAdminLogImmutable = errors.New("admin log entries are append-only")

// AdminLogEntry records one successful state transition. AdminID is nil for
// transitions performed by the system (reputation recompute, webhooks).
type AdminLogEntry struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AdminID    *string   `json:"admin_id" gorm:"size:128;index"`
	Action     string    `json:"action" gorm:"size:100;not null;index"`
	TargetType string    `json:"target_type" gorm:"size:50;not null;index:idx_admin_logs_target,priority:1"`
	TargetID   string    `json:"target_id" gorm:"size:128;not null;index:idx_admin_logs_target,priority:2"`
	Details    JSONB     `json:"details" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (e *AdminLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *AdminLogEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAdminLogImmutable
}

func (e *AdminLogEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrAdminLogImmutable
}

type NotificationType string

const (
	NotificationTypeBadge         NotificationType = "badge"
	NotificationTypeSMEStatus     NotificationType = "sme_status"
	NotificationTypeVerification  NotificationType = "verification"
	NotificationTypeCertification NotificationType = "certification"
	NotificationTypeOnboarding    NotificationType = "onboarding"
	NotificationTypeAppeal        NotificationType = "appeal"
	NotificationTypeProduct       NotificationType = "product"
)

// Notification is a user-facing inbox item; delivery channels read from here.
type Notification struct {
	BaseModel
	UserID     string           `json:"user_id" gorm:"size:128;not null;index:idx_notifications_user,priority:1"`
	Type       NotificationType `json:"type" gorm:"type:varchar(30);not null;index"`
	TargetID   string           `json:"target_id" gorm:"size:128"`
	TargetType string           `json:"target_type" gorm:"size:50"`
	Metadata   JSONB            `json:"metadata" gorm:"type:jsonb"`
	ReadAt     *time.Time       `json:"read_at" gorm:"index:idx_notifications_user,priority:2"`
}
