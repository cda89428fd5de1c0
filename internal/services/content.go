// internal/services/content.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/models"
)

// contentRef is the moderation-relevant projection of any content item.
type contentRef struct {
	ID        uuid.UUID
	AuthorID  string
	IsFlagged bool
	FlagCount int
}

func contentModel(contentType models.ContentType) (interface{}, error) {
	switch contentType {
	case models.ContentTypeDiscussion:
		return &models.Discussion{}, nil
	case models.ContentTypeDiscussionComment:
		return &models.DiscussionComment{}, nil
	case models.ContentTypeProductComment:
		return &models.ProductComment{}, nil
	case models.ContentTypeProductReview:
		return &models.ProductReview{}, nil
	default:
		return nil, ErrInvalidContentType
	}
}

func loadContent(tx *gorm.DB, contentType models.ContentType, contentID uuid.UUID) (*contentRef, error) {
	model, err := contentModel(contentType)
	if err != nil {
		return nil, err
	}

	var ref contentRef
	err = tx.Model(model).
		Select("id", "author_id", "is_flagged", "flag_count").
		Where("id = ?", contentID).
		Take(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to load content: %w", err)
	}

	return &ref, nil
}
