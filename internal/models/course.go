package models

import "time"

// Course is the enrollment target for access codes. Course management itself
// lives in another service; this API only needs the row as a foreign-key
// target and existence check.
type Course struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	AccessCodes []AccessCode `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// CourseEnrollment records a student's membership in a course. Exactly one
// row is created per successful code redemption, inside the same transaction.
type CourseEnrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  string    `gorm:"size:64;not null;uniqueIndex:idx_enrollments_student_course,priority:1" json:"student_id"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_enrollments_student_course,priority:2" json:"course_id"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolled_at"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
}

// CourseProgress tracks a student's completion within a course. Redemption
// initializes it at zero percent.
type CourseProgress struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	StudentID            string    `gorm:"size:64;not null;index" json:"student_id"`
	CourseID             uint      `gorm:"not null;index" json:"course_id"`
	CompletionPercentage float64   `gorm:"not null;default:0" json:"completion_percentage"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
