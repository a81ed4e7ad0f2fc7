package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edukita-dev/edukita-api/internal/models"
)

// EnrollmentRepository handles persistence for course enrollments.
type EnrollmentRepository interface {
	Exists(ctx context.Context, studentID string, courseID uint) (bool, error)
	Create(ctx context.Context, enrollment *models.CourseEnrollment) error
	ListByCourse(ctx context.Context, courseID uint) ([]models.CourseEnrollment, error)
}

// ProgressRepository handles persistence for course progress rows.
type ProgressRepository interface {
	Create(ctx context.Context, progress *models.CourseProgress) error
	Find(ctx context.Context, studentID string, courseID uint) (models.CourseProgress, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates a GORM-backed repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Exists(ctx context.Context, studentID string, courseID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.CourseEnrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseEnrollment, error) {
	var enrollments []models.CourseEnrollment
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates a GORM-backed repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Create(ctx context.Context, progress *models.CourseProgress) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

func (r *progressRepository) Find(ctx context.Context, studentID string, courseID uint) (models.CourseProgress, error) {
	var progress models.CourseProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&progress).Error; err != nil {
		return models.CourseProgress{}, err
	}

	return progress, nil
}
