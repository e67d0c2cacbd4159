package models

import (
	"time"

	"gorm.io/gorm"
)

// AlarmType discriminates what kind of activity produced an alarm.
type AlarmType string

const (
	AlarmNewLikeOnPost    AlarmType = "NEW_LIKE_ON_POST"
	AlarmNewCommentOnPost AlarmType = "NEW_COMMENT_ON_POST"
)

// AlarmArgs carries the variable-shape payload of an alarm. Stored as json
// so new alarm types can add fields without schema changes.
type AlarmArgs struct {
	FromUserID uint `json:"fromUserId"` // the user whose activity triggered the alarm
	TargetID   uint `json:"targetId"`   // where it happened (post id, comment id)
}

// Alarm represents a persisted notification for a recipient user.
// Immutable after creation except for soft deletion.
type Alarm struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index"` // recipient, the lookup key for history queries
	Type      AlarmType      `json:"type" gorm:"size:32"`
	Args      AlarmArgs      `json:"args" gorm:"serializer:json"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
