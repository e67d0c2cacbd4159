package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a social media post
type Post struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index"` // author
	Title     string         `json:"title" gorm:"size:200"`
	Body      string         `json:"body" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Body  string `json:"body" validate:"required,min=1"`
}

// ModifyPostRequest defines the request body for updating an existing post
type ModifyPostRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Body  string `json:"body" validate:"required,min=1"`
}
