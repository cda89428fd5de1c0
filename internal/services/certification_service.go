// internal/services/certification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

const defaultMaxEvidenceURLs = 10

// CertificationService runs Track B: the paid SME certification audit.
type CertificationService struct {
	db            *gorm.DB
	authz         *AuthorizationService
	payments      *PaymentService
	storage       *StorageService
	audit         *AuditService
	notifications NotificationSink
	minReason     int
	maxEvidence   int
}

type SubmitCertificationRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	LabReportURLs  []string  `json:"lab_report_urls" validate:"required,min=1,dive,url"`
	PurityDataURLs []string  `json:"purity_data_urls" validate:"omitempty,dive,url"`
}

type ResubmitCertificationRequest struct {
	LabReportURLs  []string `json:"lab_report_urls" validate:"omitempty,dive,url"`
	PurityDataURLs []string `json:"purity_data_urls" validate:"omitempty,dive,url"`
	Notes          string   `json:"notes" validate:"max=2000"`
}

type CertificationResult struct {
	Certification *models.SMECertification `json:"certification"`
	Checkout      *CheckoutSession         `json:"checkout,omitempty"`
	Warnings      []string                 `json:"-"`
}

type CertificationFilter struct {
	utils.PaginationParams
	Status *models.CertificationStatus
}

func NewCertificationService(db *gorm.DB, authz *AuthorizationService, payments *PaymentService, storage *StorageService, audit *AuditService, notifications NotificationSink, minReason, maxEvidence int) *CertificationService {
	if maxEvidence <= 0 {
		maxEvidence = defaultMaxEvidenceURLs
	}
	return &CertificationService{
		db:            db,
		authz:         authz,
		payments:      payments,
		storage:       storage,
		audit:         audit,
		notifications: notifications,
		minReason:     minReason,
		maxEvidence:   maxEvidence,
	}
}

// SubmitCertification opens a certification for a verified product owned by
// the actor and starts the one-time fee checkout.
func (s *CertificationService) SubmitCertification(ctx context.Context, actor Actor, req SubmitCertificationRequest) (*CertificationResult, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if err := s.checkEvidenceCount(req.LabReportURLs, req.PurityDataURLs); err != nil {
		return nil, err
	}

	var (
		cert  *models.SMECertification
		owner *models.User
	)
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		product, err := loadProduct(tx, req.ProductID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireBrandOwner(product, actor); err != nil {
			return err
		}
		if !product.IsVerified {
			return ErrProductNotVerified
		}
		if product.IsSMECertified {
			return ErrAlreadyCertified
		}

		if owner, err = loadUser(tx, actor.UserID); err != nil {
			return err
		}

		var open int64
		if err := tx.Model(&models.SMECertification{}).
			Where("product_id = ? AND status IN ?", product.ID, []models.CertificationStatus{
				models.CertificationStatusPending,
				models.CertificationStatusUnderReview,
				models.CertificationStatusMoreInfoNeeded,
			}).
			Count(&open).Error; err != nil {
			return fmt.Errorf("failed to check open certification: %w", err)
		}
		if open > 0 {
			return ErrCertificationAlreadyOpen
		}

		cert = &models.SMECertification{
			ProductID:      product.ID,
			BrandOwnerID:   actor.UserID,
			LabReportURLs:  req.LabReportURLs,
			PurityDataURLs: req.PurityDataURLs,
			Status:         models.CertificationStatusPending,
			PaymentStatus:  models.PaymentStatusUnpaid,
		}
		if err := tx.Create(cert).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrCertificationAlreadyOpen
			}
			return fmt.Errorf("failed to create certification: %w", err)
		}

		return s.audit.Record(tx, AuditEntry{
			Action:     ActionCertificationSubmitted,
			TargetType: "sme_certification",
			TargetID:   cert.ID.String(),
			Details: models.JSONB{
				"product_id":  product.ID.String(),
				"lab_reports": len(req.LabReportURLs),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(ActionCertificationSubmitted)

	result := &CertificationResult{Certification: cert}
	result.Checkout, result.Warnings = s.payments.StartCheckout(ctx, CheckoutRequest{
		Kind:      models.CheckoutKindSMECertification,
		UserID:    actor.UserID,
		Email:     owner.Email,
		ProductID: cert.ProductID,
		RecordID:  cert.ID,
	})
	if result.Checkout != nil {
		cert.CheckoutSessionID = result.Checkout.SessionID
	}

	return result, nil
}

// ApproveCertification requires Track A approval, a paid fee, and an
// under_review record, checked in that order.
func (s *CertificationService) ApproveCertification(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*models.SMECertification, error) {
	var cert models.SMECertification
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireReviewer(tx, actor); err != nil {
			return err
		}
		if err := s.load(tx, id, &cert); err != nil {
			return err
		}

		product, err := loadProduct(tx, cert.ProductID)
		if err != nil {
			return err
		}
		approvedA, err := trackAApproved(tx, product)
		if err != nil {
			return err
		}
		if !approvedA {
			return ErrTrackANotApproved
		}
		if cert.PaymentStatus != models.PaymentStatusPaid {
			return ErrCertificationNotPaid
		}
		if cert.Status != models.CertificationStatusUnderReview {
			return ErrCertificationNotUnderReview
		}

		if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
			"is_sme_certified":   true,
			"certification_tier": models.CertificationTierSMECertified,
		}).Error; err != nil {
			return fmt.Errorf("failed to certify product: %w", err)
		}

		if err := s.review(tx, &cert, actor, models.CertificationStatusApproved, map[string]interface{}{
			"reviewer_notes": notes,
		}); err != nil {
			return err
		}

		return s.recordAndNotify(tx, &cert, actor, ActionCertificationApproved, models.JSONB{
			"product_id": product.ID.String(),
			"notes":      notes,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionCertificationApproved)
	logrus.WithFields(logrus.Fields{
		"certification_id": cert.ID,
		"product_id":       cert.ProductID,
		"reviewer_id":      actor.UserID,
	}).Info("SME certification approved")
	return &cert, nil
}

// RejectCertification closes the record. Product fields are untouched.
func (s *CertificationService) RejectCertification(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.SMECertification, error) {
	var cert models.SMECertification
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireReviewer(tx, actor); err != nil {
			return err
		}
		if err := validateReason(reason, s.minReason); err != nil {
			return err
		}
		if err := s.load(tx, id, &cert); err != nil {
			return err
		}
		if cert.Status != models.CertificationStatusUnderReview {
			return ErrCertificationNotUnderReview
		}

		if err := s.review(tx, &cert, actor, models.CertificationStatusRejected, map[string]interface{}{
			"rejection_reason": reason,
		}); err != nil {
			return err
		}

		return s.recordAndNotify(tx, &cert, actor, ActionCertificationRejected, models.JSONB{"reason": reason})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionCertificationRejected)
	return &cert, nil
}

// RequestMoreInfo sends the record back to the brand with reviewer notes.
func (s *CertificationService) RequestMoreInfo(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*models.SMECertification, error) {
	var cert models.SMECertification
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireReviewer(tx, actor); err != nil {
			return err
		}
		if err := validateReason(notes, s.minReason); err != nil {
			return err
		}
		if err := s.load(tx, id, &cert); err != nil {
			return err
		}
		if cert.Status != models.CertificationStatusUnderReview {
			return ErrCertificationNotUnderReview
		}

		if err := s.review(tx, &cert, actor, models.CertificationStatusMoreInfoNeeded, map[string]interface{}{
			"reviewer_notes": notes,
		}); err != nil {
			return err
		}

		return s.recordAndNotify(tx, &cert, actor, ActionCertificationMoreInfo, models.JSONB{"notes": notes})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionCertificationMoreInfo)
	return &cert, nil
}

// ResubmitCertification adds evidence to a more_info_needed record and
// returns it to review.
func (s *CertificationService) ResubmitCertification(ctx context.Context, actor Actor, id uuid.UUID, req ResubmitCertificationRequest) (*models.SMECertification, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	var cert models.SMECertification
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.load(tx, id, &cert); err != nil {
			return err
		}
		if cert.BrandOwnerID != actor.UserID {
			return ErrNotBrandOwner
		}
		if cert.Status != models.CertificationStatusMoreInfoNeeded {
			return ErrCertificationNotAwaiting
		}

		cert.LabReportURLs = append(cert.LabReportURLs, req.LabReportURLs...)
		cert.PurityDataURLs = append(cert.PurityDataURLs, req.PurityDataURLs...)
		if err := s.checkEvidenceCount(cert.LabReportURLs, cert.PurityDataURLs); err != nil {
			return err
		}
		cert.Status = models.CertificationStatusUnderReview

		if err := tx.Model(&cert).Select("lab_report_urls", "purity_data_urls", "status").Updates(&cert).Error; err != nil {
			return fmt.Errorf("failed to resubmit certification: %w", err)
		}

		return s.audit.Record(tx, AuditEntry{
			Action:     ActionCertificationResubmitted,
			TargetType: "sme_certification",
			TargetID:   cert.ID.String(),
			Details: models.JSONB{
				"added_lab_reports": len(req.LabReportURLs),
				"added_purity_data": len(req.PurityDataURLs),
				"notes":             req.Notes,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionCertificationResubmitted)
	return &cert, nil
}

// checkEvidenceCount caps each evidence list at the configured size.
func (s *CertificationService) checkEvidenceCount(labReports, purityData []string) error {
	lists := []struct {
		field string
		urls  []string
	}{
		{"lab_report_urls", labReports},
		{"purity_data_urls", purityData},
	}

	var fields []utils.ValidationError
	for _, list := range lists {
		if len(list.urls) > s.maxEvidence {
			fields = append(fields, utils.ValidationError{
				Field:   list.field,
				Tag:     "max",
				Message: fmt.Sprintf("at most %d evidence files are accepted", s.maxEvidence),
			})
		}
	}
	if len(fields) > 0 {
		return NewValidationError(i18n.KeyValidationInvalid, "too many evidence files", fields)
	}
	return nil
}

// RequestEvidenceUpload presigns an upload for the product's brand owner.
func (s *CertificationService) RequestEvidenceUpload(ctx context.Context, actor Actor, productID uuid.UUID, filename string) (*PresignedUpload, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	product, err := loadProduct(s.db.WithContext(ctx), productID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireBrandOwner(product, actor); err != nil {
		return nil, err
	}

	return s.storage.PresignEvidenceUpload(productID, filename)
}

// GetCertification returns a record to a reviewer or to its brand owner.
// Anyone else is refused before the record is read, whether or not it exists.
func (s *CertificationService) GetCertification(ctx context.Context, actor Actor, id uuid.UUID) (*models.SMECertification, error) {
	db := s.db.WithContext(ctx)

	reviewErr := s.authz.RequireReviewer(db, actor)
	if reviewErr != nil && !errors.Is(reviewErr, ErrReviewerRequired) {
		return nil, reviewErr
	}

	query := db.Preload("Product")
	if reviewErr != nil {
		query = query.Where("brand_owner_id = ?", actor.UserID)
	}

	var cert models.SMECertification
	if err := s.load(query, id, &cert); err != nil {
		if reviewErr != nil && errors.Is(err, ErrCertificationNotFound) {
			return nil, reviewErr
		}
		return nil, err
	}
	return &cert, nil
}

// ListCertifications is the reviewer queue.
func (s *CertificationService) ListCertifications(ctx context.Context, actor Actor, filter CertificationFilter) ([]models.SMECertification, int64, error) {
	db := s.db.WithContext(ctx)
	if err := s.authz.RequireReviewer(db, actor); err != nil {
		return nil, 0, err
	}

	query := db.Model(&models.SMECertification{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count certifications: %w", err)
	}

	var certs []models.SMECertification
	query = utils.ApplySort(query.Preload("Product"), filter.PaginationParams, []string{"created_at", "updated_at", "status"})
	if err := utils.ApplyPagination(query, filter.PaginationParams).Find(&certs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list certifications: %w", err)
	}

	return certs, total, nil
}

func (s *CertificationService) review(tx *gorm.DB, cert *models.SMECertification, actor Actor, status models.CertificationStatus, fields map[string]interface{}) error {
	now := time.Now()
	reviewer := actor.UserID

	updates := map[string]interface{}{
		"status":      status,
		"reviewed_by": reviewer,
		"reviewed_at": now,
	}
	for k, v := range fields {
		updates[k] = v
	}

	if err := tx.Model(cert).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update certification: %w", err)
	}

	cert.Status = status
	cert.ReviewedBy = &reviewer
	cert.ReviewedAt = &now
	if notes, ok := fields["reviewer_notes"].(string); ok {
		cert.ReviewerNotes = notes
	}
	if reason, ok := fields["rejection_reason"].(string); ok {
		cert.RejectionReason = reason
	}
	return nil
}

func (s *CertificationService) recordAndNotify(tx *gorm.DB, cert *models.SMECertification, actor Actor, action string, details models.JSONB) error {
	if err := s.audit.Record(tx, AuditEntry{
		AdminID:    actorRef(actor),
		Action:     action,
		TargetType: "sme_certification",
		TargetID:   cert.ID.String(),
		Details:    details,
	}); err != nil {
		return err
	}

	notify(s.notifications, tx, NotificationRequest{
		UserID:     cert.BrandOwnerID,
		Type:       models.NotificationTypeCertification,
		TargetID:   cert.ID.String(),
		TargetType: "sme_certification",
		Metadata:   models.JSONB{"status": cert.Status},
	})
	return nil
}

func (s *CertificationService) load(tx *gorm.DB, id uuid.UUID, cert *models.SMECertification) error {
	if err := tx.Where("id = ?", id).First(cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCertificationNotFound
		}
		return fmt.Errorf("failed to load certification: %w", err)
	}
	return nil
}

// trackAApproved reports whether the product has passed ownership
// verification.
func trackAApproved(tx *gorm.DB, product *models.Product) (bool, error) {
	if !product.IsVerified {
		return false, nil
	}

	var approved int64
	if err := tx.Model(&models.BrandVerification{}).
		Where("product_id = ? AND status = ?", product.ID, models.VerificationStatusApproved).
		Count(&approved).Error; err != nil {
		return false, fmt.Errorf("failed to check brand verification: %w", err)
	}
	return approved > 0, nil
}
