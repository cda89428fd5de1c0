// internal/models/product.go
package models

type Product struct {
	BaseModel
	Name              string            `json:"name" gorm:"size:255;not null"`
	BrandName         string            `json:"brand_name" gorm:"size:255;index"`
	Description       string            `json:"description" gorm:"type:text"`
	Category          string            `json:"category" gorm:"size:100;index"`
	WebsiteURL        string            `json:"website_url,omitempty" gorm:"size:500"`
	ImageURL          string            `json:"image_url,omitempty" gorm:"size:500"`
	Source            string            `json:"source" gorm:"size:20;default:'intake'"`
	BrandOwnerID      *string           `json:"brand_owner_id" gorm:"size:128;index"`
	IsVerified        bool              `json:"is_verified" gorm:"not null;default:false"`
	IsSMECertified    bool              `json:"is_sme_certified" gorm:"not null;default:false"`
	CertificationTier CertificationTier `json:"certification_tier" gorm:"type:varchar(20);not null;default:'unverified'"`
	AdminStatus       AdminStatus       `json:"admin_status" gorm:"type:varchar(20);not null;default:'pending';index"`

	// Relationships
	BrandOwner *User `json:"brand_owner,omitempty" gorm:"foreignKey:BrandOwnerID"`
}

// OwnedBy reports whether userID is the recorded brand owner.
func (p *Product) OwnedBy(userID string) bool {
	return p.BrandOwnerID != nil && *p.BrandOwnerID == userID
}

// ProductPatch is a sparse set of product fields proposed by a brand. Nil
// fields are left untouched when the patch is applied.
type ProductPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	BrandName   *string `json:"brand_name,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=100"`
	WebsiteURL  *string `json:"website_url,omitempty" validate:"omitempty,url"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// Columns returns the column/value pairs set in the patch.
func (p ProductPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.BrandName != nil {
		cols["brand_name"] = *p.BrandName
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.WebsiteURL != nil {
		cols["website_url"] = *p.WebsiteURL
	}
	if p.ImageURL != nil {
		cols["image_url"] = *p.ImageURL
	}
	return cols
}

// IsEmpty reports whether the patch carries no changes.
func (p ProductPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// Snapshot captures the patchable fields of a product.
func (p *Product) Snapshot() ProductPatch {
	name, brand, desc, cat, site, img := p.Name, p.BrandName, p.Description, p.Category, p.WebsiteURL, p.ImageURL
	return ProductPatch{
		Name:        &name,
		BrandName:   &brand,
		Description: &desc,
		Category:    &cat,
		WebsiteURL:  &site,
		ImageURL:    &img,
	}
}
