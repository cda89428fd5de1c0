// internal/services/audit_service.go
package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/models"
)

// Audit actions written to the admin log.
const (
	ActionSMEPromoted              = "sme_promoted"
	ActionSMEDemoted               = "sme_demoted"
	ActionVerificationRequested    = "brand_verification_requested"
	ActionVerificationApproved     = "brand_verification_approved"
	ActionVerificationRejected     = "brand_verification_rejected"
	ActionCertificationSubmitted   = "sme_certification_submitted"
	ActionCertificationPaid        = "sme_certification_paid"
	ActionCertificationApproved    = "sme_certification_approved"
	ActionCertificationRejected    = "sme_certification_rejected"
	ActionCertificationMoreInfo    = "sme_certification_more_info_requested"
	ActionCertificationResubmitted = "sme_certification_resubmitted"
	ActionOnboardingSubmitted      = "product_onboarding_submitted"
	ActionBrandClaimApproved       = "brand_claim_approved"
	ActionProductEditApproved      = "product_edit_approved"
	ActionOnboardingRejected       = "product_onboarding_rejected"
	ActionSubscriptionChanged      = "subscription_status_changed"
	ActionAppealSubmitted          = "appeal_submitted"
	ActionAppealApproved           = "appeal_approved"
	ActionAppealRejected           = "appeal_rejected"
	ActionProductApproved          = "product_approved"
	ActionProductRejected          = "product_rejected"
	ActionExpertGranted            = "verified_expert_granted"
	ActionExpertRevoked            = "verified_expert_revoked"
)

type AuditEntry struct {
	AdminID    *string
	Action     string
	TargetType string
	TargetID   string
	Details    models.JSONB
}

// AuditService appends entries to the admin log inside the caller's
// transaction, so an entry exists iff its transition committed.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

func (s *AuditService) Record(tx *gorm.DB, entry AuditEntry) error {
	log := &models.AdminLogEntry{
		AdminID:    entry.AdminID,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		Details:    entry.Details,
	}

	if err := tx.Create(log).Error; err != nil {
		return fmt.Errorf("failed to write admin log %s: %w", entry.Action, err)
	}
	return nil
}

// actorRef returns the admin id to record for a transition performed by
// actor, or nil for system actions.
func actorRef(actor Actor) *string {
	if actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}
