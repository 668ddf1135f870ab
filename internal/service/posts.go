package service

import (
	"context"
	"strings"

	"github.com/router-for-me/GiftAdmin/internal/models"
	"gorm.io/gorm"
)

// PostService updates moderation state of posts.
type PostService struct {
	db *gorm.DB
}

// NewPostService constructs a PostService.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// UpdateStatus sets the status of post id.
func (s *PostService) UpdateStatus(ctx context.Context, id uint64, status string) error {
	status = strings.TrimSpace(status)
	if id == 0 || status == "" {
		return validationError("post id and status are required")
	}
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return WrapError("posts", "status", "update_failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
