// internal/models/user.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// SMEThreshold is the reputation score at which a user becomes a
// Subject-Matter-Expert.
const SMEThreshold = 100

// TrustedVoiceLabel is the badge_type shown for users holding SME status.
const TrustedVoiceLabel = "Trusted Voice"

// User is keyed by the stable id issued by the identity provider.
type User struct {
	ID               string         `json:"id" gorm:"primaryKey;size:128"`
	DisplayName      string         `json:"display_name" gorm:"size:100"`
	Email            string         `json:"email,omitempty" gorm:"size:255;index"`
	ReputationScore  int            `json:"reputation_score" gorm:"not null;default:0"`
	IsSME            bool           `json:"is_sme" gorm:"not null;default:false;index"`
	BadgeType        *string        `json:"badge_type,omitempty" gorm:"size:50"`
	Role             UserRole       `json:"role" gorm:"type:varchar(20);not null;default:'standard'"`
	IsVerifiedExpert bool           `json:"is_verified_expert" gorm:"not null;default:false"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Badges []UserBadge `json:"badges,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// CanReviewCertifications reports whether the user may act on SME certification records.
func (u *User) CanReviewCertifications() bool {
	return u.IsAdmin() || u.IsVerifiedExpert
}
