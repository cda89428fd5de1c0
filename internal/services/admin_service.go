// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

type AdminService struct {
	db            *gorm.DB
	authz         *AuthorizationService
	audit         *AuditService
	notifications NotificationSink
	minReason     int
}

type AdminDashboardStats struct {
	TotalUsers             int64 `json:"total_users"`
	NewUsersThisMonth      int64 `json:"new_users_this_month"`
	SMEUsers               int64 `json:"sme_users"`
	VerifiedExperts        int64 `json:"verified_experts"`
	TotalProducts          int64 `json:"total_products"`
	PendingProducts        int64 `json:"pending_products"`
	VerifiedProducts       int64 `json:"verified_products"`
	CertifiedProducts      int64 `json:"certified_products"`
	PendingVerifications   int64 `json:"pending_verifications"`
	CertificationsInReview int64 `json:"certifications_in_review"`
	PendingOnboardings     int64 `json:"pending_onboardings"`
	PendingAppeals         int64 `json:"pending_appeals"`
	FlaggedDiscussions     int64 `json:"flagged_discussions"`
	ActiveSubscriptions    int64 `json:"active_subscriptions"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role  *models.UserRole `json:"role,omitempty"`
	IsSME *bool            `json:"is_sme,omitempty"`
}

type AdminProductFilter struct {
	utils.PaginationParams
	AdminStatus *models.AdminStatus `json:"admin_status,omitempty"`
}

type AdminLogFilter struct {
	utils.PaginationParams
	Action       string     `json:"action,omitempty"`
	TargetType   string     `json:"target_type,omitempty"`
	TargetID     string     `json:"target_id,omitempty"`
	CreatedAfter *time.Time `json:"created_after,omitempty"`
}

func NewAdminService(db *gorm.DB, authz *AuthorizationService, audit *AuditService, notifications NotificationSink, minReason int) *AdminService {
	return &AdminService{
		db:            db,
		authz:         authz,
		audit:         audit,
		notifications: notifications,
		minReason:     minReason,
	}
}

func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminDashboardStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		dest  *int64
	}{
		{&models.User{}, "", nil, &stats.TotalUsers},
		{&models.User{}, "created_at >= ?", []interface{}{monthStart}, &stats.NewUsersThisMonth},
		{&models.User{}, "is_sme = ?", []interface{}{true}, &stats.SMEUsers},
		{&models.User{}, "is_verified_expert = ?", []interface{}{true}, &stats.VerifiedExperts},
		{&models.Product{}, "", nil, &stats.TotalProducts},
		{&models.Product{}, "admin_status IN ?", []interface{}{[]models.AdminStatus{models.AdminStatusPending, models.AdminStatusPendingReview}}, &stats.PendingProducts},
		{&models.Product{}, "is_verified = ?", []interface{}{true}, &stats.VerifiedProducts},
		{&models.Product{}, "is_sme_certified = ?", []interface{}{true}, &stats.CertifiedProducts},
		{&models.BrandVerification{}, "status = ?", []interface{}{models.VerificationStatusPending}, &stats.PendingVerifications},
		{&models.SMECertification{}, "status = ?", []interface{}{models.CertificationStatusUnderReview}, &stats.CertificationsInReview},
		{&models.ProductOnboarding{}, "verification_status = ?", []interface{}{models.OnboardingStatusPending}, &stats.PendingOnboardings},
		{&models.AppealRequest{}, "status = ?", []interface{}{models.AppealStatusPending}, &stats.PendingAppeals},
		{&models.Discussion{}, "is_flagged = ?", []interface{}{true}, &stats.FlaggedDiscussions},
		{&models.PaymentSubscription{}, "status = ?", []interface{}{models.SubscriptionStatusActive}, &stats.ActiveSubscriptions},
	}

	for _, c := range counts {
		query := db.Model(c.model)
		if c.where != "" {
			query = query.Where(c.where, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
		}
	}

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	// Apply filters
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsSME != nil {
		query = query.Where("is_sme = ?", *filter.IsSME)
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "reputation_score", "display_name"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

// SetVerifiedExpert grants or revokes certification-review rights.
func (s *AdminService) SetVerifiedExpert(ctx context.Context, actor Actor, userID string, expert bool) (*models.User, error) {
	var user *models.User
	action := ActionExpertRevoked
	if expert {
		action = ActionExpertGranted
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireAdmin(tx, actor); err != nil {
			return err
		}

		var err error
		if user, err = loadUser(tx, userID); err != nil {
			return err
		}
		if user.IsVerifiedExpert == expert {
			return nil
		}

		if err := tx.Model(user).Update("is_verified_expert", expert).Error; err != nil {
			return fmt.Errorf("failed to update expert flag: %w", err)
		}
		user.IsVerifiedExpert = expert

		return s.audit.Record(tx, AuditEntry{
			AdminID:    actorRef(actor),
			Action:     action,
			TargetType: "user",
			TargetID:   userID,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(action)
	return user, nil
}

// Product moderation
func (s *AdminService) GetProducts(ctx context.Context, filter AdminProductFilter) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.AdminStatus != nil {
		query = query.Where("admin_status = ?", *filter.AdminStatus)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(brand_name) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name", "brand_name"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

func (s *AdminService) ApproveProduct(ctx context.Context, actor Actor, productID uuid.UUID) (*models.Product, error) {
	return s.setProductStatus(ctx, actor, productID, models.AdminStatusApproved, "")
}

func (s *AdminService) RejectProduct(ctx context.Context, actor Actor, productID uuid.UUID, reason string) (*models.Product, error) {
	if err := validateReason(reason, s.minReason); err != nil {
		return nil, err
	}
	return s.setProductStatus(ctx, actor, productID, models.AdminStatusRejected, reason)
}

func (s *AdminService) setProductStatus(ctx context.Context, actor Actor, productID uuid.UUID, status models.AdminStatus, reason string) (*models.Product, error) {
	action := ActionProductRejected
	if status == models.AdminStatusApproved {
		action = ActionProductApproved
	}

	var product *models.Product
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.authz.RequireAdmin(tx, actor); err != nil {
			return err
		}

		var err error
		if product, err = loadProduct(tx, productID); err != nil {
			return err
		}
		previous := product.AdminStatus

		if err := tx.Model(product).Update("admin_status", status).Error; err != nil {
			return fmt.Errorf("failed to update product status: %w", err)
		}
		product.AdminStatus = status

		details := models.JSONB{"from": previous, "to": status}
		if reason != "" {
			details["reason"] = reason
		}
		if err := s.audit.Record(tx, AuditEntry{
			AdminID:    actorRef(actor),
			Action:     action,
			TargetType: "product",
			TargetID:   productID.String(),
			Details:    details,
		}); err != nil {
			return err
		}

		if product.BrandOwnerID != nil {
			notify(s.notifications, tx, NotificationRequest{
				UserID:     *product.BrandOwnerID,
				Type:       models.NotificationTypeProduct,
				TargetID:   productID.String(),
				TargetType: "product",
				Metadata:   details,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(action)
	return product, nil
}

// GetAdminLogs lists the audit trail, newest first.
func (s *AdminService) GetAdminLogs(ctx context.Context, filter AdminLogFilter) ([]models.AdminLogEntry, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AdminLogEntry{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count admin logs: %w", err)
	}

	var logs []models.AdminLogEntry
	query = utils.ApplyPagination(query.Order("created_at DESC"), filter.PaginationParams)
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch admin logs: %w", err)
	}

	return logs, total, nil
}
