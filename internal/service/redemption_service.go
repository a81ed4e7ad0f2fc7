package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/edukita-dev/edukita-api/internal/models"
	"github.com/edukita-dev/edukita-api/internal/observability"
	"github.com/edukita-dev/edukita-api/internal/repository"
)

// Reasons reported for redemption attempts that fail as an expected business
// outcome. These travel as values, never as errors.
const (
	ReasonCodeNotFound    = "code_not_found"
	ReasonAlreadyUsed     = "code_already_used"
	ReasonExpired         = "code_expired"
	ReasonAlreadyEnrolled = "student_already_enrolled"
	ReasonCourseNotFound  = "course_not_found"
)

// RedemptionResult reports the outcome of a redemption attempt. Reason is
// empty when Redeemed is true.
type RedemptionResult struct {
	Redeemed bool
	Reason   string
}

// errRedemptionRejected aborts the transaction for soft failures so that any
// reads held by the transaction are released without a commit.
var errRedemptionRejected = errors.New("redemption rejected")

// RedemptionService executes the atomic enrollment transaction.
type RedemptionService interface {
	Redeem(ctx context.Context, code, studentID string, courseID uint) (RedemptionResult, error)
}

type redemptionService struct {
	uow    repository.UnitOfWork
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewRedemptionService builds the coordinator around a unit of work.
func NewRedemptionService(uow repository.UnitOfWork, logger zerolog.Logger) RedemptionService {
	return &redemptionService{
		uow:    uow,
		logger: logger.With().Str("component", "redemption_service").Logger(),
		tracer: otel.Tracer("edukita-api/redemption"),
		now:    time.Now,
	}
}

// Redeem converts an unused, valid code into an enrollment. All five
// precondition checks and all four writes happen inside one transaction:
// either the code is marked used AND the enrollment, progress, and
// notification rows exist, or none of it is observable. Soft failures return
// Redeemed=false with a reason; only infrastructure errors propagate.
func (s *redemptionService) Redeem(ctx context.Context, code, studentID string, courseID uint) (RedemptionResult, error) {
	ctx, span := s.tracer.Start(ctx, "access_code.redeem", trace.WithAttributes(
		attribute.Int64("course.id", int64(courseID)),
	))
	defer span.End()

	now := s.now()
	result := RedemptionResult{}

	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		accessCode, err := repos.AccessCodes.FindRedeemable(ctx, code, courseID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				result.Reason = ReasonCodeNotFound
				return errRedemptionRejected
			}
			return err
		}

		if accessCode.IsUsed {
			result.Reason = ReasonAlreadyUsed
			return errRedemptionRejected
		}

		if !accessCode.ExpiresAt.After(now) {
			result.Reason = ReasonExpired
			return errRedemptionRejected
		}

		enrolled, err := repos.Enrollments.Exists(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		if enrolled {
			result.Reason = ReasonAlreadyEnrolled
			return errRedemptionRejected
		}

		// Step 1 already joined on course_id, but the course row itself
		// could have been deleted between the index read and here.
		course, err := repos.Courses.GetByID(ctx, courseID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				result.Reason = ReasonCourseNotFound
				return errRedemptionRejected
			}
			return err
		}

		marked, err := repos.AccessCodes.MarkUsed(ctx, code, studentID, now)
		if err != nil {
			return err
		}
		if !marked {
			// A concurrent transaction won the guarded update.
			result.Reason = ReasonAlreadyUsed
			return errRedemptionRejected
		}

		if err := repos.Enrollments.Create(ctx, &models.CourseEnrollment{
			StudentID:  studentID,
			CourseID:   courseID,
			EnrolledAt: now,
			IsActive:   true,
		}); err != nil {
			return err
		}

		if err := repos.Progress.Create(ctx, &models.CourseProgress{
			StudentID:            studentID,
			CourseID:             courseID,
			CompletionPercentage: 0,
			CreatedAt:            now,
		}); err != nil {
			return err
		}

		message := fmt.Sprintf("You are now enrolled in %q. Your access is valid until %s.",
			course.Title, accessCode.ExpiresAt.Format("2006-01-02"))

		return repos.Notifications.Create(ctx, &models.Notification{
			UserID:  studentID,
			Type:    models.NotificationTypeEnrollment,
			Message: message,
			Metadata: datatypes.JSONMap{
				"course_id": courseID,
				"code":      code,
			},
		})
	})

	switch {
	case err == nil:
		result.Redeemed = true
		result.Reason = ""
	case errors.Is(err, errRedemptionRejected):
		err = nil
	default:
		span.RecordError(err)
		observability.Redemptions().WithLabelValues("error").Inc()
		return RedemptionResult{}, err
	}

	outcome := result.Reason
	if result.Redeemed {
		outcome = "redeemed"
	}
	span.SetAttributes(attribute.String("redemption.outcome", outcome))
	observability.Redemptions().WithLabelValues(outcome).Inc()

	s.logger.Info().
		Uint("course_id", courseID).
		Bool("redeemed", result.Redeemed).
		Str("reason", result.Reason).
		Msg("redemption attempt processed")

	return result, nil
}
