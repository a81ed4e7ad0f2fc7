package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edukita-dev/edukita-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.AccessCode{},
		&models.CourseEnrollment{},
		&models.CourseProgress{},
		&models.Notification{},
	))

	return db
}

func seedCode(t *testing.T, db *gorm.DB, courseID uint, code string, mutate func(*models.AccessCode)) models.AccessCode {
	t.Helper()

	row := models.AccessCode{
		Code:      code,
		CourseID:  courseID,
		CreatedBy: "T1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(models.AccessCodeValidity),
	}
	if mutate != nil {
		mutate(&row)
	}
	require.NoError(t, db.Create(&row).Error)

	return row
}

func seedTestCourse(t *testing.T, db *gorm.DB) models.Course {
	t.Helper()

	course := models.Course{Title: "Intro to Databases"}
	require.NoError(t, db.Create(&course).Error)

	return course
}

func TestMarkUsedIsFirstWriterWins(t *testing.T) {
	db := setupTestDB(t)
	course := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	seedCode(t, db, course.ID, "MARKUSEDCOD1", nil)

	usedAt := time.Now()
	marked, err := repo.MarkUsed(ctx, "MARKUSEDCOD1", "S1", usedAt)
	require.NoError(t, err)
	require.True(t, marked)

	// The second writer matches zero rows and must not overwrite the first.
	marked, err = repo.MarkUsed(ctx, "MARKUSEDCOD1", "S2", usedAt.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, marked)

	row, err := repo.FindByCode(ctx, "MARKUSEDCOD1")
	require.NoError(t, err)
	require.True(t, row.IsUsed)
	require.NotNil(t, row.UsedBy)
	require.Equal(t, "S1", *row.UsedBy)
}

func TestMarkUsedSkipsDisabledCodes(t *testing.T) {
	db := setupTestDB(t)
	course := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedCode(t, db, course.ID, "DISABLEDCOD1", func(c *models.AccessCode) {
		c.IsDisabled = true
		c.DisabledAt = &now
	})

	marked, err := repo.MarkUsed(ctx, "DISABLEDCOD1", "S1", now)
	require.NoError(t, err)
	require.False(t, marked)
}

func TestDisableReportsWhetherRowChanged(t *testing.T) {
	db := setupTestDB(t)
	course := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	seedCode(t, db, course.ID, "DISABLETEST1", nil)

	disabled, err := repo.Disable(ctx, "DISABLETEST1", time.Now())
	require.NoError(t, err)
	require.True(t, disabled)

	disabled, err = repo.Disable(ctx, "DISABLETEST1", time.Now())
	require.NoError(t, err)
	require.False(t, disabled)

	disabled, err = repo.Disable(ctx, "NOSUCHCODE01", time.Now())
	require.NoError(t, err)
	require.False(t, disabled)

	row, err := repo.FindByCode(ctx, "DISABLETEST1")
	require.NoError(t, err)
	require.True(t, row.IsDisabled)
	require.NotNil(t, row.DisabledAt)
}

func TestCourseCodesExcludesDisabledAndOtherCourses(t *testing.T) {
	db := setupTestDB(t)
	courseA := seedTestCourse(t, db)
	courseB := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	now := time.Now()
	seedCode(t, db, courseA.ID, "COURSEACODE1", nil)
	seedCode(t, db, courseA.ID, "COURSEACODE2", func(c *models.AccessCode) {
		c.IsDisabled = true
		c.DisabledAt = &now
	})
	seedCode(t, db, courseB.ID, "COURSEBCODE1", nil)

	codes, err := repo.CourseCodes(ctx, courseA.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"COURSEACODE1"}, codes)
}

func TestFindRedeemableScopesByCourseAndDisabled(t *testing.T) {
	db := setupTestDB(t)
	courseA := seedTestCourse(t, db)
	courseB := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	seedCode(t, db, courseA.ID, "REDEEMCODEA1", nil)

	_, err := repo.FindRedeemable(ctx, "REDEEMCODEA1", courseA.ID)
	require.NoError(t, err)

	// Same code against the wrong course is invisible.
	_, err = repo.FindRedeemable(ctx, "REDEEMCODEA1", courseB.ID)
	require.True(t, IsRecordNotFound(err))

	disabled, err := repo.Disable(ctx, "REDEEMCODEA1", time.Now())
	require.NoError(t, err)
	require.True(t, disabled)

	_, err = repo.FindRedeemable(ctx, "REDEEMCODEA1", courseA.ID)
	require.True(t, IsRecordNotFound(err))
}

func TestListActiveFiltersUsedDisabledExpired(t *testing.T) {
	db := setupTestDB(t)
	course := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	now := time.Now()
	usedBy := "S1"
	seedCode(t, db, course.ID, "LISTACTIVE01", nil)
	seedCode(t, db, course.ID, "LISTACTIVE02", func(c *models.AccessCode) {
		c.IsUsed = true
		c.UsedAt = &now
		c.UsedBy = &usedBy
	})
	seedCode(t, db, course.ID, "LISTACTIVE03", func(c *models.AccessCode) {
		c.IsDisabled = true
		c.DisabledAt = &now
	})
	seedCode(t, db, course.ID, "LISTACTIVE04", func(c *models.AccessCode) {
		c.ExpiresAt = now.Add(-time.Minute)
	})

	active, err := repo.ListActive(ctx, course.ID, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "LISTACTIVE01", active[0].Code)
}

func TestListPagedCountsAndOrdersNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	course := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		seedCode(t, db, course.ID, fmt.Sprintf("PAGEDTEST%03d", i), func(c *models.AccessCode) {
			c.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		})
	}

	codes, total, err := repo.ListPaged(ctx, course.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(25), total)
	require.Len(t, codes, 10)
	require.Equal(t, "PAGEDTEST024", codes[0].Code)

	codes, total, err = repo.ListPaged(ctx, course.ID, 3, 10)
	require.NoError(t, err)
	require.Equal(t, int64(25), total)
	require.Len(t, codes, 5)
	require.Equal(t, "PAGEDTEST000", codes[len(codes)-1].Code)

	// Past the last page comes back empty, not an error.
	codes, total, err = repo.ListPaged(ctx, course.ID, 4, 10)
	require.NoError(t, err)
	require.Equal(t, int64(25), total)
	require.Empty(t, codes)
}

func TestExistsIsGlobalAcrossCourses(t *testing.T) {
	db := setupTestDB(t)
	courseA := seedTestCourse(t, db)
	repo := NewAccessCodeRepository(db)
	ctx := context.Background()

	seedCode(t, db, courseA.ID, "GLOBALEXIST1", nil)

	exists, err := repo.Exists(ctx, "GLOBALEXIST1")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.Exists(ctx, "NEVERISSUED1")
	require.NoError(t, err)
	require.False(t, exists)
}
