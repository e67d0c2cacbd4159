package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post
type Comment struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	PostID    uint           `json:"post_id" gorm:"index"`
	UserID    uint           `json:"user_id" gorm:"index"` // comment author
	Comment   string         `json:"comment" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// CreateCommentRequest defines the request body for commenting on a post
type CreateCommentRequest struct {
	Comment string `json:"comment" validate:"required,min=1,max=500"`
}
