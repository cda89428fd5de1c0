// internal/services/onboarding_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

// OnboardingService handles brand claims on existing products and
// brand-proposed product edits.
type OnboardingService struct {
	db            *gorm.DB
	authz         *AuthorizationService
	payments      *PaymentService
	audit         *AuditService
	notifications NotificationSink
	minReason     int
}

type OnboardingResult struct {
	Onboarding *models.ProductOnboarding `json:"onboarding"`
	Checkout   *CheckoutSession          `json:"checkout,omitempty"`
	Warnings   []string                  `json:"-"`
}

type OnboardingFilter struct {
	utils.PaginationParams
	Status         *models.OnboardingStatus
	SubmissionType *models.SubmissionType
}

func NewOnboardingService(db *gorm.DB, authz *AuthorizationService, payments *PaymentService, audit *AuditService, notifications NotificationSink, minReason int) *OnboardingService {
	return &OnboardingService{
		db:            db,
		authz:         authz,
		payments:      payments,
		audit:         audit,
		notifications: notifications,
		minReason:     minReason,
	}
}

// SubmitBrandClaim asks for ownership of an unclaimed product.
func (s *OnboardingService) SubmitBrandClaim(ctx context.Context, actor Actor, productID uuid.UUID) (*models.ProductOnboarding, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var onboarding *models.ProductOnboarding
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if _, err := loadUser(tx, actor.UserID); err != nil {
			return err
		}
		product, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if product.BrandOwnerID != nil {
			return ErrProductAlreadyClaimed
		}

		var pending int64
		if err := tx.Model(&models.ProductOnboarding{}).
			Where("product_id = ? AND user_id = ? AND submission_type = ? AND verification_status = ?",
				productID, actor.UserID, models.SubmissionTypeBrandClaim, models.OnboardingStatusPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("failed to check pending claims: %w", err)
		}
		if pending > 0 {
			return ErrClaimAlreadyPending
		}

		onboarding = &models.ProductOnboarding{
			ProductID:          productID,
			UserID:             actor.UserID,
			SubmissionType:     models.SubmissionTypeBrandClaim,
			CurrentData:        product.Snapshot(),
			VerificationStatus: models.OnboardingStatusPending,
		}
		return s.create(tx, onboarding)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionOnboardingSubmitted)
	return onboarding, nil
}

// SubmitProductEdit proposes a sparse field change to a product the actor
// owns.
func (s *OnboardingService) SubmitProductEdit(ctx context.Context, actor Actor, productID uuid.UUID, patch models.ProductPatch) (*models.ProductOnboarding, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	if err := validateRequest(&patch); err != nil {
		return nil, err
	}

	var onboarding *models.ProductOnboarding
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		product, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if err := s.authz.RequireBrandOwner(product, actor); err != nil {
			return err
		}

		onboarding = &models.ProductOnboarding{
			ProductID:          productID,
			UserID:             actor.UserID,
			SubmissionType:     models.SubmissionTypeProductEdit,
			ProposedData:       patch,
			CurrentData:        product.Snapshot(),
			VerificationStatus: models.OnboardingStatusPending,
		}
		return s.create(tx, onboarding)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionOnboardingSubmitted)
	return onboarding, nil
}

// ApproveOnboarding applies the submission. A brand claim writes ownership
// and role in one transaction and then sends the subscription payment link;
// a product edit merges only the proposed fields.
func (s *OnboardingService) ApproveOnboarding(ctx context.Context, actor Actor, id uuid.UUID) (*OnboardingResult, error) {
	var (
		onboarding models.ProductOnboarding
		claimant   *models.User
		action     string
	)
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireAdmin(tx, actor); err != nil {
			return err
		}
		if err := s.load(tx, id, &onboarding); err != nil {
			return err
		}
		if onboarding.VerificationStatus != models.OnboardingStatusPending {
			return ErrOnboardingNotPending
		}

		product, err := loadProduct(tx, onboarding.ProductID)
		if err != nil {
			return err
		}

		details := models.JSONB{"product_id": product.ID.String(), "user_id": onboarding.UserID}
		statusUpdates := map[string]interface{}{}

		switch onboarding.SubmissionType {
		case models.SubmissionTypeBrandClaim:
			action = ActionBrandClaimApproved
			if product.BrandOwnerID != nil && !product.OwnedBy(onboarding.UserID) {
				return ErrProductOwnedByAnother
			}
			if claimant, err = loadUser(tx, onboarding.UserID); err != nil {
				return err
			}
			if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
				Update("brand_owner_id", onboarding.UserID).Error; err != nil {
				return fmt.Errorf("failed to assign brand owner: %w", err)
			}
			if err := promoteToBrandRep(tx, claimant); err != nil {
				return err
			}
			statusUpdates["subscription_status"] = models.SubscriptionStatusPendingPayment

		case models.SubmissionTypeProductEdit:
			action = ActionProductEditApproved
			if !product.OwnedBy(onboarding.UserID) {
				return ErrNotBrandOwner
			}
			columns := onboarding.ProposedData.Columns()
			if len(columns) == 0 {
				return ErrEmptyPatch
			}
			if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(columns).Error; err != nil {
				return fmt.Errorf("failed to apply product edit: %w", err)
			}
			details["fields"] = fieldNames(columns)

		default:
			return fmt.Errorf("unknown submission type %q", onboarding.SubmissionType)
		}

		if err := s.review(tx, &onboarding, actor, models.OnboardingStatusVerified, statusUpdates); err != nil {
			return err
		}

		if err := s.audit.Record(tx, AuditEntry{
			AdminID:    actorRef(actor),
			Action:     action,
			TargetType: "product_onboarding",
			TargetID:   onboarding.ID.String(),
			Details:    details,
		}); err != nil {
			return err
		}

		notify(s.notifications, tx, NotificationRequest{
			UserID:     onboarding.UserID,
			Type:       models.NotificationTypeOnboarding,
			TargetID:   onboarding.ID.String(),
			TargetType: "product_onboarding",
			Metadata: models.JSONB{
				"status":          models.OnboardingStatusVerified,
				"submission_type": onboarding.SubmissionType,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(action)
	logrus.WithFields(logrus.Fields{
		"onboarding_id": onboarding.ID,
		"type":          onboarding.SubmissionType,
		"admin_id":      actor.UserID,
	}).Info("Product onboarding approved")

	result := &OnboardingResult{Onboarding: &onboarding}
	if onboarding.SubmissionType != models.SubmissionTypeBrandClaim {
		return result, nil
	}

	result.Checkout, result.Warnings = s.payments.StartCheckout(ctx, CheckoutRequest{
		Kind:      models.CheckoutKindBrandOnboarding,
		UserID:    onboarding.UserID,
		Email:     claimant.Email,
		ProductID: onboarding.ProductID,
		RecordID:  onboarding.ID,
	})
	if result.Checkout != nil {
		now := time.Now()
		onboarding.CheckoutSessionID = result.Checkout.SessionID
		onboarding.PaymentLinkSentAt = &now
	}

	return result, nil
}

func (s *OnboardingService) RejectOnboarding(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.ProductOnboarding, error) {
	var onboarding models.ProductOnboarding
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireAdmin(tx, actor); err != nil {
			return err
		}
		if err := validateReason(reason, s.minReason); err != nil {
			return err
		}
		if err := s.load(tx, id, &onboarding); err != nil {
			return err
		}
		if onboarding.VerificationStatus != models.OnboardingStatusPending {
			return ErrOnboardingNotPending
		}

		if err := s.review(tx, &onboarding, actor, models.OnboardingStatusRejected, map[string]interface{}{
			"rejection_reason": reason,
		}); err != nil {
			return err
		}
		onboarding.RejectionReason = reason

		if err := s.audit.Record(tx, AuditEntry{
			AdminID:    actorRef(actor),
			Action:     ActionOnboardingRejected,
			TargetType: "product_onboarding",
			TargetID:   onboarding.ID.String(),
			Details:    models.JSONB{"reason": reason, "submission_type": onboarding.SubmissionType},
		}); err != nil {
			return err
		}

		notify(s.notifications, tx, NotificationRequest{
			UserID:     onboarding.UserID,
			Type:       models.NotificationTypeOnboarding,
			TargetID:   onboarding.ID.String(),
			TargetType: "product_onboarding",
			Metadata:   models.JSONB{"status": models.OnboardingStatusRejected, "reason": reason},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionOnboardingRejected)
	return &onboarding, nil
}

func (s *OnboardingService) ListOnboardings(ctx context.Context, actor Actor, filter OnboardingFilter) ([]models.ProductOnboarding, int64, error) {
	db := s.db.WithContext(ctx)
	if err := s.authz.RequireAdmin(db, actor); err != nil {
		return nil, 0, err
	}

	query := db.Model(&models.ProductOnboarding{})
	if filter.Status != nil {
		query = query.Where("verification_status = ?", *filter.Status)
	}
	if filter.SubmissionType != nil {
		query = query.Where("submission_type = ?", *filter.SubmissionType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count onboardings: %w", err)
	}

	var onboardings []models.ProductOnboarding
	query = utils.ApplySort(query.Preload("Product"), filter.PaginationParams, []string{"created_at", "updated_at"})
	if err := utils.ApplyPagination(query, filter.PaginationParams).Find(&onboardings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list onboardings: %w", err)
	}

	return onboardings, total, nil
}

func (s *OnboardingService) create(tx *gorm.DB, onboarding *models.ProductOnboarding) error {
	if err := tx.Create(onboarding).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrClaimAlreadyPending
		}
		return fmt.Errorf("failed to create onboarding: %w", err)
	}

	return s.audit.Record(tx, AuditEntry{
		Action:     ActionOnboardingSubmitted,
		TargetType: "product_onboarding",
		TargetID:   onboarding.ID.String(),
		Details: models.JSONB{
			"product_id":      onboarding.ProductID.String(),
			"submission_type": onboarding.SubmissionType,
		},
	})
}

func (s *OnboardingService) review(tx *gorm.DB, onboarding *models.ProductOnboarding, actor Actor, status models.OnboardingStatus, fields map[string]interface{}) error {
	now := time.Now()
	reviewer := actor.UserID

	updates := map[string]interface{}{
		"verification_status": status,
		"reviewed_by":         reviewer,
		"reviewed_at":         now,
	}
	for k, v := range fields {
		updates[k] = v
	}

	if err := tx.Model(onboarding).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update onboarding: %w", err)
	}

	onboarding.VerificationStatus = status
	onboarding.ReviewedBy = &reviewer
	onboarding.ReviewedAt = &now
	if sub, ok := fields["subscription_status"].(models.SubscriptionStatus); ok {
		onboarding.SubscriptionStatus = &sub
	}
	return nil
}

func (s *OnboardingService) load(tx *gorm.DB, id uuid.UUID, onboarding *models.ProductOnboarding) error {
	if err := tx.Where("id = ?", id).First(onboarding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOnboardingNotFound
		}
		return fmt.Errorf("failed to load onboarding: %w", err)
	}
	return nil
}

func fieldNames(columns map[string]interface{}) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
