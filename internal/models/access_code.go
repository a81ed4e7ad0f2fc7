package models

import "time"

// AccessCodeValidity is the fixed window between issuance and expiry.
// ExpiresAt is computed once at creation and never recomputed.
const AccessCodeValidity = 32 * 24 * time.Hour

// AccessCode is a single-use, time-boxed enrollment code for one course.
// Codes are never physically deleted; revocation sets IsDisabled, which is
// terminal regardless of the used/expired state.
type AccessCode struct {
	Code       string     `gorm:"primaryKey;size:20" json:"code"`
	CourseID   uint       `gorm:"not null;index:idx_access_codes_course_state,priority:1" json:"course_id"`
	CreatedBy  string     `gorm:"size:64;not null" json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	IsUsed     bool       `gorm:"not null;default:false;index:idx_access_codes_course_state,priority:2" json:"is_used"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	UsedBy     *string    `gorm:"size:64" json:"used_by,omitempty"`
	IsDisabled bool       `gorm:"not null;default:false;index:idx_access_codes_course_state,priority:3" json:"is_disabled"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
}
