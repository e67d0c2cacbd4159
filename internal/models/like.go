package models

import (
	"time"

	"gorm.io/gorm"
)

// Like represents a like on a post. A user may like a post at most once.
type Like struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	PostID    uint           `json:"post_id" gorm:"index"`
	UserID    uint           `json:"user_id" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
