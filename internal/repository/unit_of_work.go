package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles the stores that can participate in one transaction.
type Repositories struct {
	AccessCodes   AccessCodeRepository
	Courses       CourseRepository
	Enrollments   EnrollmentRepository
	Progress      ProgressRepository
	Notifications NotificationRepository
}

// NewRepositories binds every repository to the given database handle, which
// may be a plain connection or an open transaction.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		AccessCodes:   NewAccessCodeRepository(db),
		Courses:       NewCourseRepository(db),
		Enrollments:   NewEnrollmentRepository(db),
		Progress:      NewProgressRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// UnitOfWork runs a function against transaction-bound repositories. Any
// error returned from the function rolls the whole transaction back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork wraps a GORM connection in a transactional unit of work.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
