// internal/services/verification_service.go
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
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

// VerificationService runs Track A: brand ownership verification.
type VerificationService struct {
	db            *gorm.DB
	authz         *AuthorizationService
	payments      *PaymentService
	audit         *AuditService
	notifications NotificationSink
	minReason     int
}

type RequestVerificationRequest struct {
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	WorkEmail       string    `json:"work_email" validate:"required,email,max=255"`
	LinkedInProfile string    `json:"linkedin_profile" validate:"required,linkedin,max=500"`
	CompanyWebsite  string    `json:"company_website" validate:"required,url,max=500"`
}

type VerificationResult struct {
	Verification *models.BrandVerification `json:"verification"`
	Checkout     *CheckoutSession          `json:"checkout,omitempty"`
	Warnings     []string                  `json:"-"`
}

type VerificationFilter struct {
	utils.PaginationParams
	Status *models.VerificationStatus
}

func NewVerificationService(db *gorm.DB, authz *AuthorizationService, payments *PaymentService, audit *AuditService, notifications NotificationSink, minReason int) *VerificationService {
	return &VerificationService{
		db:            db,
		authz:         authz,
		payments:      payments,
		audit:         audit,
		notifications: notifications,
		minReason:     minReason,
	}
}

// RequestVerification opens a pending verification and starts the
// subscription checkout. A checkout failure leaves the record in place and
// is reported through Warnings.
func (s *VerificationService) RequestVerification(ctx context.Context, actor Actor, req RequestVerificationRequest) (*VerificationResult, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	var (
		verification *models.BrandVerification
		claimant     *models.User
	)
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		if claimant, err = loadUser(tx, actor.UserID); err != nil {
			return err
		}

		product, err := loadProduct(tx, req.ProductID)
		if err != nil {
			return err
		}
		if product.BrandOwnerID != nil && !product.OwnedBy(actor.UserID) {
			return ErrProductOwnedByAnother
		}

		var active int64
		if err := tx.Model(&models.BrandVerification{}).
			Where("product_id = ? AND status IN ?", req.ProductID, []models.VerificationStatus{
				models.VerificationStatusPending,
				models.VerificationStatusApproved,
			}).
			Count(&active).Error; err != nil {
			return fmt.Errorf("failed to check active verification: %w", err)
		}
		if active > 0 {
			return ErrVerificationAlreadyActive
		}

		verification = &models.BrandVerification{
			ProductID:          req.ProductID,
			UserID:             actor.UserID,
			WorkEmail:          req.WorkEmail,
			LinkedInProfile:    req.LinkedInProfile,
			CompanyWebsite:     req.CompanyWebsite,
			Status:             models.VerificationStatusPending,
			SubscriptionStatus: models.SubscriptionStatusPendingPayment,
		}
		if err := tx.Create(verification).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrVerificationAlreadyActive
			}
			return fmt.Errorf("failed to create verification: %w", err)
		}

		return s.audit.Record(tx, AuditEntry{
			Action:     ActionVerificationRequested,
			TargetType: "brand_verification",
			TargetID:   verification.ID.String(),
			Details:    models.JSONB{"product_id": req.ProductID.String(), "user_id": actor.UserID},
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(ActionVerificationRequested)

	result := &VerificationResult{Verification: verification}
	result.Checkout, result.Warnings = s.payments.StartCheckout(ctx, CheckoutRequest{
		Kind:      models.CheckoutKindBrandVerification,
		UserID:    actor.UserID,
		Email:     claimant.Email,
		ProductID: verification.ProductID,
		RecordID:  verification.ID,
	})
	if result.Checkout != nil {
		verification.CheckoutSessionID = result.Checkout.SessionID
	}

	return result, nil
}

// ApproveVerification grants ownership. Payment must already be active; the
// product flags, ownership, and the claimant's role commit together.
func (s *VerificationService) ApproveVerification(ctx context.Context, actor Actor, id uuid.UUID) (*models.BrandVerification, error) {
	var verification models.BrandVerification
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireAdmin(tx, actor); err != nil {
			return err
		}

		if err := s.load(tx, id, &verification); err != nil {
			return err
		}
		if verification.Status != models.VerificationStatusPending {
			return ErrVerificationNotPending
		}
		if verification.SubscriptionStatus != models.SubscriptionStatusActive {
			return ErrSubscriptionNotActive
		}

		product, err := loadProduct(tx, verification.ProductID)
		if err != nil {
			return err
		}
		if product.BrandOwnerID != nil && !product.OwnedBy(verification.UserID) {
			return ErrProductOwnedByAnother
		}

		claimant, err := loadUser(tx, verification.UserID)
		if err != nil {
			return err
		}

		productUpdates := map[string]interface{}{
			"is_verified":    true,
			"brand_owner_id": verification.UserID,
		}
		if product.CertificationTier != models.CertificationTierSMECertified {
			productUpdates["certification_tier"] = models.CertificationTierVerified
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(productUpdates).Error; err != nil {
			return fmt.Errorf("failed to verify product: %w", err)
		}

		if err := promoteToBrandRep(tx, claimant); err != nil {
			return err
		}

		now := time.Now()
		reviewer := actor.UserID
		if err := tx.Model(&verification).Updates(map[string]interface{}{
			"status":      models.VerificationStatusApproved,
			"reviewed_by": reviewer,
			"reviewed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to approve verification: %w", err)
		}
		verification.Status = models.VerificationStatusApproved
		verification.ReviewedBy = &reviewer
		verification.ReviewedAt = &now

		if err := s.audit.Record(tx, AuditEntry{
			AdminID:    actorRef(actor),
			Action:     ActionVerificationApproved,
			TargetType: "brand_verification",
			TargetID:   verification.ID.String(),
			Details: models.JSONB{
				"product_id": product.ID.String(),
				"user_id":    verification.UserID,
			},
		}); err != nil {
			return err
		}

		notify(s.notifications, tx, NotificationRequest{
			UserID:     verification.UserID,
			Type:       models.NotificationTypeVerification,
			TargetID:   verification.ID.String(),
			TargetType: "brand_verification",
			Metadata:   models.JSONB{"status": models.VerificationStatusApproved, "product_id": product.ID.String()},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionVerificationApproved)
	logrus.WithFields(logrus.Fields{
		"verification_id": verification.ID,
		"product_id":      verification.ProductID,
		"admin_id":        actor.UserID,
	}).Info("Brand verification approved")
	return &verification, nil
}

func (s *VerificationService) RejectVerification(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.BrandVerification, error) {
	var verification models.BrandVerification
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireAdmin(tx, actor); err != nil {
			return err
		}
		if err := validateReason(reason, s.minReason); err != nil {
			return err
		}

		if err := s.load(tx, id, &verification); err != nil {
			return err
		}
		if verification.Status != models.VerificationStatusPending {
			return ErrVerificationNotPending
		}

		now := time.Now()
		reviewer := actor.UserID
		if err := tx.Model(&verification).Updates(map[string]interface{}{
			"status":           models.VerificationStatusRejected,
			"rejection_reason": reason,
			"reviewed_by":      reviewer,
			"reviewed_at":      now,
		}).Error; err != nil {
			return fmt.Errorf("failed to reject verification: %w", err)
		}
		verification.Status = models.VerificationStatusRejected
		verification.RejectionReason = reason
		verification.ReviewedBy = &reviewer
		verification.ReviewedAt = &now

		if err := s.audit.Record(tx, AuditEntry{
			AdminID:    actorRef(actor),
			Action:     ActionVerificationRejected,
			TargetType: "brand_verification",
			TargetID:   verification.ID.String(),
			Details:    models.JSONB{"reason": reason, "product_id": verification.ProductID.String()},
		}); err != nil {
			return err
		}

		notify(s.notifications, tx, NotificationRequest{
			UserID:     verification.UserID,
			Type:       models.NotificationTypeVerification,
			TargetID:   verification.ID.String(),
			TargetType: "brand_verification",
			Metadata:   models.JSONB{"status": models.VerificationStatusRejected, "reason": reason},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionVerificationRejected)
	return &verification, nil
}

// ListVerifications is the admin review queue.
func (s *VerificationService) ListVerifications(ctx context.Context, actor Actor, filter VerificationFilter) ([]models.BrandVerification, int64, error) {
	db := s.db.WithContext(ctx)
	if err := s.authz.RequireAdmin(db, actor); err != nil {
		return nil, 0, err
	}

	query := db.Model(&models.BrandVerification{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count verifications: %w", err)
	}

	var verifications []models.BrandVerification
	query = utils.ApplySort(query.Preload("Product"), filter.PaginationParams, []string{"created_at", "updated_at", "status"})
	if err := utils.ApplyPagination(query, filter.PaginationParams).Find(&verifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list verifications: %w", err)
	}

	return verifications, total, nil
}

// ListForUser returns the caller's own verification requests.
func (s *VerificationService) ListForUser(ctx context.Context, actor Actor) ([]models.BrandVerification, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var verifications []models.BrandVerification
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", actor.UserID).
		Order("created_at DESC").
		Find(&verifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return verifications, nil
}

func (s *VerificationService) load(tx *gorm.DB, id uuid.UUID, verification *models.BrandVerification) error {
	if err := tx.Where("id = ?", id).First(verification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVerificationNotFound
		}
		return fmt.Errorf("failed to load verification: %w", err)
	}
	return nil
}
