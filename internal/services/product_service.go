// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

type ProductService struct {
	db    *gorm.DB
	authz *AuthorizationService
}

type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	BrandName   string `json:"brand_name" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    string `json:"category" validate:"required,max=100"`
	WebsiteURL  string `json:"website_url,omitempty" validate:"omitempty,url"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Tier         *models.CertificationTier `json:"tier,omitempty"`
	IsVerified   *bool                     `json:"is_verified,omitempty"`
	BrandOwnerID *string                   `json:"brand_owner_id,omitempty"`
}

// ProductTrust is the public view of a product's position on the trust ladder.
type ProductTrust struct {
	ProductID          uuid.UUID                   `json:"product_id"`
	Tier               models.CertificationTier    `json:"tier"`
	IsVerified         bool                        `json:"is_verified"`
	IsSMECertified     bool                        `json:"is_sme_certified"`
	Claimed            bool                        `json:"claimed"`
	VerificationStatus *models.VerificationStatus  `json:"verification_status,omitempty"`
	SubscriptionStatus *models.SubscriptionStatus  `json:"subscription_status,omitempty"`
	CertificationState *models.CertificationStatus `json:"certification_status,omitempty"`
}

func NewProductService(db *gorm.DB, authz *AuthorizationService) *ProductService {
	return &ProductService{
		db:    db,
		authz: authz,
	}
}

// CreateProduct adds an unclaimed product from community intake. It enters the
// admin moderation queue and carries no trust tier until a brand claims it.
func (s *ProductService) CreateProduct(ctx context.Context, actor Actor, req *CreateProductRequest) (*models.Product, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:              strings.TrimSpace(req.Name),
		BrandName:         strings.TrimSpace(req.BrandName),
		Description:       req.Description,
		Category:          req.Category,
		WebsiteURL:        req.WebsiteURL,
		ImageURL:          req.ImageURL,
		Source:            "intake",
		CertificationTier: models.CertificationTierUnverified,
		AdminStatus:       models.AdminStatusPending,
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// GetProduct returns approved products to anyone. Products still in
// moderation are visible only to their brand owner and admins.
func (s *ProductService) GetProduct(ctx context.Context, actor Actor, id uuid.UUID) (*models.Product, error) {
	var product *models.Product
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		if product, err = loadProduct(tx, id); err != nil {
			return err
		}

		if product.AdminStatus == models.AdminStatusApproved || product.OwnedBy(actor.UserID) {
			return nil
		}
		err = s.authz.RequireAdmin(tx, actor)
		if IsKind(err, KindUnauthorized) {
			return ErrProductNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetTrustStatus summarizes the product's verification, subscription and
// certification state.
func (s *ProductService) GetTrustStatus(ctx context.Context, id uuid.UUID) (*ProductTrust, error) {
	db := s.db.WithContext(ctx)
	product, err := loadProduct(db, id)
	if err != nil {
		return nil, err
	}

	trust := &ProductTrust{
		ProductID:      product.ID,
		Tier:           product.CertificationTier,
		IsVerified:     product.IsVerified,
		IsSMECertified: product.IsSMECertified,
		Claimed:        product.BrandOwnerID != nil,
	}

	var verification models.BrandVerification
	err = db.Where("product_id = ?", id).Order("created_at DESC").First(&verification).Error
	switch {
	case err == nil:
		trust.VerificationStatus = &verification.Status
		trust.SubscriptionStatus = &verification.SubscriptionStatus
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load verification: %w", err)
	}

	var certification models.SMECertification
	err = db.Where("product_id = ?", id).Order("created_at DESC").First(&certification).Error
	switch {
	case err == nil:
		trust.CertificationState = &certification.Status
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load certification: %w", err)
	}

	return trust, nil
}

func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("admin_status = ?", models.AdminStatusApproved)

	// Apply filters
	if params.Tier != nil {
		query = query.Where("certification_tier = ?", *params.Tier)
	}
	if params.IsVerified != nil {
		query = query.Where("is_verified = ?", *params.IsVerified)
	}
	if params.BrandOwnerID != nil {
		query = query.Where("brand_owner_id = ?", *params.BrandOwnerID)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(brand_name) LIKE ?", searchTerm, searchTerm)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	// Apply sorting
	allowedSortFields := []string{"created_at", "updated_at", "name", "brand_name", "certification_tier"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// ListOwnedProducts returns every product the actor holds as brand owner,
// regardless of moderation status.
func (s *ProductService) ListOwnedProducts(ctx context.Context, actor Actor) ([]models.Product, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).Where("brand_owner_id = ?", actor.UserID).
		Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}
