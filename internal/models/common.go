// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key in the application so inserts do not
// depend on a database-side uuid generator.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("unsupported JSONB source type")
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleStandard UserRole = "standard"
	UserRoleBrandRep UserRole = "brand_rep"
	UserRoleAdmin    UserRole = "admin"
)

type ContentType string

const (
	ContentTypeDiscussion        ContentType = "discussion"
	ContentTypeDiscussionComment ContentType = "discussion_comment"
	ContentTypeProductComment    ContentType = "product_comment"
	ContentTypeProductReview     ContentType = "product_review"
)

// Votable reports whether community votes may target this content type.
func (c ContentType) Votable() bool {
	switch c {
	case ContentTypeDiscussion, ContentTypeDiscussionComment, ContentTypeProductComment:
		return true
	}
	return false
}

// Valid reports whether the content type is known to the moderation subsystem.
func (c ContentType) Valid() bool {
	return c.Votable() || c == ContentTypeProductReview
}

type CertificationTier string

const (
	CertificationTierUnverified   CertificationTier = "unverified"
	CertificationTierVerified     CertificationTier = "verified"
	CertificationTierSMECertified CertificationTier = "sme_certified"
)

type AdminStatus string

const (
	AdminStatusPending       AdminStatus = "pending"
	AdminStatusApproved      AdminStatus = "approved"
	AdminStatusRejected      AdminStatus = "rejected"
	AdminStatusPendingReview AdminStatus = "pending_review"
)

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusApproved VerificationStatus = "approved"
	VerificationStatusRejected VerificationStatus = "rejected"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionStatusActive         SubscriptionStatus = "active"
	SubscriptionStatusPastDue        SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled       SubscriptionStatus = "canceled"
)

type CertificationStatus string

const (
	CertificationStatusPending        CertificationStatus = "pending"
	CertificationStatusUnderReview    CertificationStatus = "under_review"
	CertificationStatusApproved       CertificationStatus = "approved"
	CertificationStatusRejected       CertificationStatus = "rejected"
	CertificationStatusMoreInfoNeeded CertificationStatus = "more_info_needed"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type SubmissionType string

const (
	SubmissionTypeBrandClaim  SubmissionType = "brand_claim"
	SubmissionTypeProductEdit SubmissionType = "product_edit"
)

type OnboardingStatus string

const (
	OnboardingStatusPending  OnboardingStatus = "pending"
	OnboardingStatusVerified OnboardingStatus = "verified"
	OnboardingStatusRejected OnboardingStatus = "rejected"
)

type AppealStatus string

const (
	AppealStatusPending  AppealStatus = "pending"
	AppealStatusApproved AppealStatus = "approved"
	AppealStatusRejected AppealStatus = "rejected"
)

type CheckoutKind string

const (
	CheckoutKindBrandVerification CheckoutKind = "brand_verification"
	CheckoutKindSMECertification  CheckoutKind = "sme_certification"
	CheckoutKindBrandOnboarding   CheckoutKind = "brand_onboarding"
)
