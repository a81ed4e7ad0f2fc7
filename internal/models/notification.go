package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationTypeEnrollment marks notifications created by a code redemption.
const NotificationTypeEnrollment = "course_enrollment"

// Notification represents a message targeted to a specific user. This service
// only creates rows; delivery is handled elsewhere.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"size:64;index" json:"user_id"`
	Type      string            `gorm:"size:64" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
