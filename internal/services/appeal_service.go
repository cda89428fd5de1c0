// internal/services/appeal_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

// AppealService lets authors contest moderation flags.
type AppealService struct {
	db            *gorm.DB
	authz         *AuthorizationService
	audit         *AuditService
	notifications NotificationSink
	minReason     int
}

type SubmitAppealRequest struct {
	ContentType models.ContentType `json:"content_type" validate:"required"`
	ContentID   uuid.UUID          `json:"content_id" validate:"required"`
	Reason      string             `json:"reason" validate:"required,max=2000"`
}

type AppealFilter struct {
	utils.PaginationParams
	Status *models.AppealStatus
}

func NewAppealService(db *gorm.DB, authz *AuthorizationService, audit *AuditService, notifications NotificationSink, minReason int) *AppealService {
	return &AppealService{
		db:            db,
		authz:         authz,
		audit:         audit,
		notifications: notifications,
		minReason:     minReason,
	}
}

// SubmitAppeal checks, in order: the content exists, the actor wrote it, it
// is flagged, and no appeal for it is pending. The last two fail with
// distinct errors.
func (s *AppealService) SubmitAppeal(ctx context.Context, actor Actor, req SubmitAppealRequest) (*models.AppealRequest, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if !req.ContentType.Valid() {
		return nil, ErrInvalidContentType
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if err := validateReason(req.Reason, s.minReason); err != nil {
		return nil, err
	}

	var appeal *models.AppealRequest
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		content, err := loadContent(tx, req.ContentType, req.ContentID)
		if err != nil {
			return err
		}
		if content.AuthorID != actor.UserID {
			return ErrNotContentAuthor
		}
		if !content.IsFlagged {
			return ErrContentNotFlagged
		}

		var pending int64
		if err := tx.Model(&models.AppealRequest{}).
			Where("content_type = ? AND content_id = ? AND status = ?", req.ContentType, req.ContentID, models.AppealStatusPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("failed to check pending appeals: %w", err)
		}
		if pending > 0 {
			return ErrAppealAlreadyPending
		}

		appeal = &models.AppealRequest{
			ContentType: req.ContentType,
			ContentID:   req.ContentID,
			AppellantID: actor.UserID,
			Reason:      req.Reason,
			Status:      models.AppealStatusPending,
		}
		if err := tx.Create(appeal).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAppealAlreadyPending
			}
			return fmt.Errorf("failed to create appeal: %w", err)
		}

		return s.audit.Record(tx, AuditEntry{
			Action:     ActionAppealSubmitted,
			TargetType: "appeal",
			TargetID:   appeal.ID.String(),
			Details: models.JSONB{
				"content_type": req.ContentType,
				"content_id":   req.ContentID.String(),
				"flag_count":   content.FlagCount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ActionAppealSubmitted)
	return appeal, nil
}

// ApproveAppeal clears the content's flag state.
func (s *AppealService) ApproveAppeal(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*models.AppealRequest, error) {
	return s.resolve(ctx, actor, id, models.AppealStatusApproved, notes, func(tx *gorm.DB, appeal *models.AppealRequest) error {
		model, err := contentModel(appeal.ContentType)
		if err != nil {
			return err
		}

		result := tx.Model(model).Where("id = ?", appeal.ContentID).Updates(map[string]interface{}{
			"is_flagged": false,
			"flag_count": 0,
		})
		if result.Error != nil {
			return fmt.Errorf("failed to clear content flag: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrContentNotFound
		}
		return nil
	})
}

func (s *AppealService) RejectAppeal(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*models.AppealRequest, error) {
	return s.resolve(ctx, actor, id, models.AppealStatusRejected, notes, nil)
}

func (s *AppealService) resolve(ctx context.Context, actor Actor, id uuid.UUID, status models.AppealStatus, notes string, apply func(*gorm.DB, *models.AppealRequest) error) (*models.AppealRequest, error) {
	action := ActionAppealRejected
	if status == models.AppealStatusApproved {
		action = ActionAppealApproved
	}

	var appeal models.AppealRequest
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireAdmin(tx, actor); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).First(&appeal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppealNotFound
			}
			return fmt.Errorf("failed to load appeal: %w", err)
		}
		if appeal.Status != models.AppealStatusPending {
			return ErrAppealNotPending
		}

		if apply != nil {
			if err := apply(tx, &appeal); err != nil {
				return err
			}
		}

		now := time.Now()
		reviewer := actor.UserID
		if err := tx.Model(&appeal).Updates(map[string]interface{}{
			"status":      status,
			"admin_notes": notes,
			"reviewed_by": reviewer,
			"reviewed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update appeal: %w", err)
		}
		appeal.Status = status
		appeal.AdminNotes = notes
		appeal.ReviewedBy = &reviewer
		appeal.ReviewedAt = &now

		if err := s.audit.Record(tx, AuditEntry{
			AdminID:    actorRef(actor),
			Action:     action,
			TargetType: "appeal",
			TargetID:   appeal.ID.String(),
			Details: models.JSONB{
				"content_type": appeal.ContentType,
				"content_id":   appeal.ContentID.String(),
				"notes":        notes,
			},
		}); err != nil {
			return err
		}

		notify(s.notifications, tx, NotificationRequest{
			UserID:     appeal.AppellantID,
			Type:       models.NotificationTypeAppeal,
			TargetID:   appeal.ID.String(),
			TargetType: "appeal",
			Metadata:   models.JSONB{"status": status, "content_type": appeal.ContentType},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(action)
	return &appeal, nil
}

func (s *AppealService) ListAppeals(ctx context.Context, actor Actor, filter AppealFilter) ([]models.AppealRequest, int64, error) {
	db := s.db.WithContext(ctx)
	if err := s.authz.RequireAdmin(db, actor); err != nil {
		return nil, 0, err
	}

	query := db.Model(&models.AppealRequest{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count appeals: %w", err)
	}

	var appeals []models.AppealRequest
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "updated_at"})
	if err := utils.ApplyPagination(query, filter.PaginationParams).Find(&appeals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list appeals: %w", err)
	}

	return appeals, total, nil
}
