// internal/services/notification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

const notificationSavepoint = "notification_enqueue"

type NotificationRequest struct {
	UserID     string
	Type       models.NotificationType
	TargetID   string
	TargetType string
	Metadata   models.JSONB
}

// NotificationSink accepts notifications produced by a transition. Enqueue
// runs inside the transition's transaction.
type NotificationSink interface {
	Enqueue(tx *gorm.DB, req NotificationRequest) error
}

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Enqueue writes the notification under a savepoint. On failure the
// savepoint is rolled back and the surrounding transaction stays usable.
func (s *NotificationService) Enqueue(tx *gorm.DB, req NotificationRequest) error {
	if err := tx.SavePoint(notificationSavepoint).Error; err != nil {
		return NewExternalDependencyError(i18n.KeyInternalError, "failed to open notification savepoint", err)
	}

	notification := &models.Notification{
		UserID:     req.UserID,
		Type:       req.Type,
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
		Metadata:   req.Metadata,
	}

	if err := tx.Create(notification).Error; err != nil {
		if rbErr := tx.RollbackTo(notificationSavepoint).Error; rbErr != nil {
			return fmt.Errorf("failed to roll back notification savepoint: %w", rbErr)
		}
		return NewExternalDependencyError(i18n.KeyInternalError, "failed to enqueue notification", err)
	}

	return nil
}

// notify enqueues through sink and downgrades any failure to a warning.
func notify(sink NotificationSink, tx *gorm.DB, req NotificationRequest) {
	if sink == nil {
		return
	}
	if err := sink.Enqueue(tx, req); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"type":    req.Type,
			"target":  req.TargetID,
		}).Warn("Notification enqueue failed")
	}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, params utils.PaginationParams) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query = utils.ApplyPagination(query.Order("created_at DESC"), params)
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, notificationID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	if notification.ReadAt != nil {
		return &notification, nil
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&notification).Update("read_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	notification.ReadAt = &now

	return &notification, nil
}
