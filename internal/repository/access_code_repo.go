package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/edukita-dev/edukita-api/internal/models"
)

// AccessCodeRepository defines persistence operations for access codes.
type AccessCodeRepository interface {
	Create(ctx context.Context, code *models.AccessCode) error
	CreateBatch(ctx context.Context, codes []models.AccessCode) error
	Exists(ctx context.Context, code string) (bool, error)
	CourseCodes(ctx context.Context, courseID uint) ([]string, error)
	FindByCode(ctx context.Context, code string) (models.AccessCode, error)
	FindRedeemable(ctx context.Context, code string, courseID uint) (models.AccessCode, error)
	MarkUsed(ctx context.Context, code string, studentID string, usedAt time.Time) (bool, error)
	Disable(ctx context.Context, code string, disabledAt time.Time) (bool, error)
	ListActive(ctx context.Context, courseID uint, now time.Time) ([]models.AccessCode, error)
	ListPaged(ctx context.Context, courseID uint, page, pageSize int) ([]models.AccessCode, int64, error)
}

type accessCodeRepository struct {
	db *gorm.DB
}

// NewAccessCodeRepository instantiates a GORM-backed repository.
func NewAccessCodeRepository(db *gorm.DB) AccessCodeRepository {
	return &accessCodeRepository{db: db}
}

func (r *accessCodeRepository) Create(ctx context.Context, code *models.AccessCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// CreateBatch persists all codes in a single batched INSERT. Bulk issuance of
// 1000 codes must not turn into 1000 round-trips.
func (r *accessCodeRepository) CreateBatch(ctx context.Context, codes []models.AccessCode) error {
	if len(codes) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).CreateInBatches(codes, 500).Error
}

// Exists reports whether any code row carries this value. The check is global
// because the code column is the primary key.
func (r *accessCodeRepository) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AccessCode{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// CourseCodes returns the code strings of every non-disabled code issued for
// the course. Used by the bulk issuance path to test candidates in memory.
func (r *accessCodeRepository) CourseCodes(ctx context.Context, courseID uint) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).Model(&models.AccessCode{}).
		Where("course_id = ? AND is_disabled = ?", courseID, false).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}

	return codes, nil
}

func (r *accessCodeRepository) FindByCode(ctx context.Context, code string) (models.AccessCode, error) {
	var accessCode models.AccessCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&accessCode).Error; err != nil {
		return models.AccessCode{}, err
	}

	return accessCode, nil
}

// FindRedeemable loads the code row scoped to the course, excluding disabled
// codes. Disabled codes are invisible to redemption by definition.
func (r *accessCodeRepository) FindRedeemable(ctx context.Context, code string, courseID uint) (models.AccessCode, error) {
	var accessCode models.AccessCode
	if err := r.db.WithContext(ctx).
		Where("code = ? AND course_id = ? AND is_disabled = ?", code, courseID, false).
		First(&accessCode).Error; err != nil {
		return models.AccessCode{}, err
	}

	return accessCode, nil
}

// MarkUsed flips the code to used with a guarded UPDATE. The is_used filter in
// the WHERE clause makes the transition first-writer-wins: a second caller
// matches zero rows and gets false instead of overwriting usedAt/usedBy.
func (r *accessCodeRepository) MarkUsed(ctx context.Context, code string, studentID string, usedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.AccessCode{}).
		Where("code = ? AND is_used = ? AND is_disabled = ?", code, false, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": usedAt,
			"used_by": studentID,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// Disable revokes a code. Returns false when the code does not exist or is
// already disabled; the transition is terminal either way.
func (r *accessCodeRepository) Disable(ctx context.Context, code string, disabledAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.AccessCode{}).
		Where("code = ? AND is_disabled = ?", code, false).
		Updates(map[string]interface{}{
			"is_disabled": true,
			"disabled_at": disabledAt,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *accessCodeRepository) ListActive(ctx context.Context, courseID uint, now time.Time) ([]models.AccessCode, error) {
	var codes []models.AccessCode
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND is_used = ? AND is_disabled = ? AND expires_at > ?", courseID, false, false, now).
		Order("created_at DESC").
		Find(&codes).Error; err != nil {
		return nil, err
	}

	return codes, nil
}

func (r *accessCodeRepository) ListPaged(ctx context.Context, courseID uint, page, pageSize int) ([]models.AccessCode, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AccessCode{}).Where("course_id = ?", courseID)

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var codes []models.AccessCode
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&codes).Error; err != nil {
		return nil, 0, err
	}

	return codes, total, nil
}

// IsRecordNotFound reports whether the error marks a missing row.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
