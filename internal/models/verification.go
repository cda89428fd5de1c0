// internal/models/verification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// BrandVerification is Track A of the product trust ladder. At most one
// pending or approved record may exist per product.
type BrandVerification struct {
	BaseModel
	ProductID            uuid.UUID          `json:"product_id" gorm:"type:uuid;not null;index"`
	UserID               string             `json:"user_id" gorm:"size:128;not null;index"`
	WorkEmail            string             `json:"work_email" gorm:"size:255;not null"`
	LinkedInProfile      string             `json:"linkedin_profile" gorm:"size:500"`
	CompanyWebsite       string             `json:"company_website" gorm:"size:500"`
	Status               VerificationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	SubscriptionStatus   SubscriptionStatus `json:"subscription_status" gorm:"type:varchar(20);not null;default:'pending_payment'"`
	CheckoutSessionID    string             `json:"checkout_session_id,omitempty" gorm:"size:255"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id,omitempty" gorm:"size:255;index"`
	ReviewedBy           *string            `json:"reviewed_by" gorm:"size:128"`
	ReviewedAt           *time.Time         `json:"reviewed_at"`
	RejectionReason      string             `json:"rejection_reason,omitempty" gorm:"type:text"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// SMECertification is Track B of the product trust ladder.
type SMECertification struct {
	BaseModel
	ProductID         uuid.UUID           `json:"product_id" gorm:"type:uuid;not null;index"`
	BrandOwnerID      string              `json:"brand_owner_id" gorm:"size:128;not null;index"`
	LabReportURLs     []string            `json:"lab_report_urls" gorm:"serializer:json;type:text"`
	PurityDataURLs    []string            `json:"purity_data_urls" gorm:"serializer:json;type:text"`
	Status            CertificationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus     PaymentStatus       `json:"payment_status" gorm:"type:varchar(20);not null;default:'unpaid'"`
	CheckoutSessionID string              `json:"checkout_session_id,omitempty" gorm:"size:255"`
	StripePaymentID   *string             `json:"stripe_payment_id,omitempty" gorm:"size:255;index"`
	ReviewerNotes     string              `json:"reviewer_notes,omitempty" gorm:"type:text"`
	RejectionReason   string              `json:"rejection_reason,omitempty" gorm:"type:text"`
	ReviewedBy        *string             `json:"reviewed_by" gorm:"size:128"`
	ReviewedAt        *time.Time          `json:"reviewed_at"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// ProductOnboarding is a brand-submitted claim or edit awaiting review.
type ProductOnboarding struct {
	BaseModel
	ProductID            uuid.UUID           `json:"product_id" gorm:"type:uuid;not null;index"`
	UserID               string              `json:"user_id" gorm:"size:128;not null;index"`
	SubmissionType       SubmissionType      `json:"submission_type" gorm:"type:varchar(20);not null"`
	ProposedData         ProductPatch        `json:"proposed_data" gorm:"serializer:json;type:text"`
	CurrentData          ProductPatch        `json:"current_data" gorm:"serializer:json;type:text"`
	VerificationStatus   OnboardingStatus    `json:"verification_status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ReviewedBy           *string             `json:"reviewed_by" gorm:"size:128"`
	ReviewedAt           *time.Time          `json:"reviewed_at"`
	RejectionReason      string              `json:"rejection_reason,omitempty" gorm:"type:text"`
	PaymentLinkSentAt    *time.Time          `json:"payment_link_sent_at"`
	CheckoutSessionID    string              `json:"checkout_session_id,omitempty" gorm:"size:255"`
	StripeSubscriptionID *string             `json:"stripe_subscription_id,omitempty" gorm:"size:255;index"`
	SubscriptionStatus   *SubscriptionStatus `json:"subscription_status" gorm:"type:varchar(20)"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// PaymentSubscription is the single source of truth for the status of an
// external subscription; verification and onboarding rows mirror it.
type PaymentSubscription struct {
	BaseModel
	ExternalID string             `json:"external_id" gorm:"size:255;not null;uniqueIndex"`
	Kind       CheckoutKind       `json:"kind" gorm:"type:varchar(30);not null"`
	UserID     string             `json:"user_id" gorm:"size:128;not null;index"`
	ProductID  uuid.UUID          `json:"product_id" gorm:"type:uuid;not null;index"`
	RecordID   uuid.UUID          `json:"record_id" gorm:"type:uuid;not null"`
	Status     SubscriptionStatus `json:"status" gorm:"type:varchar(20);not null"`
}
