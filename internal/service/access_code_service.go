package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edukita-dev/edukita-api/internal/dto"
	"github.com/edukita-dev/edukita-api/internal/models"
	"github.com/edukita-dev/edukita-api/internal/observability"
	"github.com/edukita-dev/edukita-api/internal/repository"
)

// Sentinel errors surfaced by the access code service.
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrCodeNotFound   = errors.New("access code not found")
	ErrMissingIssuer  = errors.New("issuer id must not be empty")
	ErrMissingStudent = errors.New("student id must not be empty")
	ErrMissingActor   = errors.New("actor id must not be empty")
)

// maxPageSize caps the page size of paged listings regardless of the request.
const maxPageSize = 100

const defaultPageSize = 20

// AccessCodeService is the public contract of the code lifecycle engine.
type AccessCodeService interface {
	Generate(ctx context.Context, courseID uint, issuerID string) (dto.AccessCodeResponse, error)
	BulkGenerate(ctx context.Context, courseID uint, issuerID string, payload dto.BulkGenerateRequest) (dto.BulkGenerateResponse, error)
	Redeem(ctx context.Context, code, studentID string, courseID uint) (dto.RedeemResponse, error)
	Disable(ctx context.Context, code, disabledBy string) (bool, error)
	Get(ctx context.Context, code string) (dto.AccessCodeResponse, error)
	Stats(ctx context.Context, code string) (dto.AccessCodeStatsResponse, error)
	ListActive(ctx context.Context, courseID uint) ([]dto.AccessCodeResponse, error)
	ListPaged(ctx context.Context, courseID uint, page, pageSize int) (dto.PagedAccessCodesResponse, error)
}

type accessCodeService struct {
	codes       repository.AccessCodeRepository
	courses     repository.CourseRepository
	issuer      *CodeIssuer
	redeemer    RedemptionService
	validator   *validator.Validate
	redis       *redis.Client
	cacheTTL    time.Duration
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// AccessCodeServiceConfig groups the orchestrator's collaborators.
type AccessCodeServiceConfig struct {
	Codes       repository.AccessCodeRepository
	Courses     repository.CourseRepository
	Issuer      *CodeIssuer
	Redeemer    RedemptionService
	Validator   *validator.Validate
	Redis       *redis.Client
	CacheTTL    time.Duration
	Nats        *nats.Conn
	NatsSubject string
	Logger      zerolog.Logger
}

// NewAccessCodeService builds the orchestrator. Redis and NATS are optional;
// nil clients disable caching and event publishing respectively.
func NewAccessCodeService(cfg AccessCodeServiceConfig) AccessCodeService {
	return &accessCodeService{
		codes:       cfg.Codes,
		courses:     cfg.Courses,
		issuer:      cfg.Issuer,
		redeemer:    cfg.Redeemer,
		validator:   cfg.Validator,
		redis:       cfg.Redis,
		cacheTTL:    cfg.CacheTTL,
		nats:        cfg.Nats,
		natsSubject: cfg.NatsSubject,
		logger:      cfg.Logger.With().Str("component", "access_code_service").Logger(),
		tracer:      otel.Tracer("edukita-api/access_codes"),
		now:         time.Now,
	}
}

func (s *accessCodeService) Generate(ctx context.Context, courseID uint, issuerID string) (dto.AccessCodeResponse, error) {
	if issuerID == "" {
		return dto.AccessCodeResponse{}, ErrMissingIssuer
	}

	if err := s.requireCourse(ctx, courseID); err != nil {
		return dto.AccessCodeResponse{}, err
	}

	code, err := s.issuer.GenerateUnique(ctx)
	if err != nil {
		return dto.AccessCodeResponse{}, err
	}

	now := s.now()
	accessCode := models.AccessCode{
		Code:      code,
		CourseID:  courseID,
		CreatedBy: issuerID,
		CreatedAt: now,
		ExpiresAt: now.Add(models.AccessCodeValidity),
	}

	if err := s.codes.Create(ctx, &accessCode); err != nil {
		return dto.AccessCodeResponse{}, err
	}

	observability.CodesIssued().WithLabelValues("single").Inc()
	s.invalidateActiveCache(ctx, courseID)

	s.logger.Info().Uint("course_id", courseID).Str("issuer", issuerID).Msg("access code issued")

	return dto.NewAccessCodeResponse(accessCode), nil
}

func (s *accessCodeService) BulkGenerate(ctx context.Context, courseID uint, issuerID string, payload dto.BulkGenerateRequest) (dto.BulkGenerateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkGenerateResponse{}, err
	}
	if issuerID == "" {
		return dto.BulkGenerateResponse{}, ErrMissingIssuer
	}

	ctx, span := s.tracer.Start(ctx, "access_code.bulk_generate", trace.WithAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int("quantity", payload.Quantity),
	))
	defer span.End()

	if err := s.requireCourse(ctx, courseID); err != nil {
		return dto.BulkGenerateResponse{}, err
	}

	batch, err := s.issuer.GenerateUniqueBatch(ctx, courseID, payload.Quantity)
	if err != nil {
		return dto.BulkGenerateResponse{}, err
	}

	now := s.now()
	accessCodes := make([]models.AccessCode, 0, len(batch))
	for _, code := range batch {
		accessCodes = append(accessCodes, models.AccessCode{
			Code:      code,
			CourseID:  courseID,
			CreatedBy: issuerID,
			CreatedAt: now,
			ExpiresAt: now.Add(models.AccessCodeValidity),
		})
	}

	if err := s.codes.CreateBatch(ctx, accessCodes); err != nil {
		return dto.BulkGenerateResponse{}, err
	}

	observability.CodesIssued().WithLabelValues("bulk").Add(float64(len(accessCodes)))
	if shortfall := payload.Quantity - len(accessCodes); shortfall > 0 {
		observability.BulkShortfall().Add(float64(shortfall))
		s.logger.Warn().
			Uint("course_id", courseID).
			Int("requested", payload.Quantity).
			Int("generated", len(accessCodes)).
			Msg("bulk generation produced fewer codes than requested")
	}

	s.invalidateActiveCache(ctx, courseID)

	return dto.BulkGenerateResponse{
		Requested: payload.Quantity,
		Generated: len(accessCodes),
		Codes:     dto.NewAccessCodeResponseSlice(accessCodes),
	}, nil
}

func (s *accessCodeService) Redeem(ctx context.Context, code, studentID string, courseID uint) (dto.RedeemResponse, error) {
	if studentID == "" {
		return dto.RedeemResponse{}, ErrMissingStudent
	}

	result, err := s.redeemer.Redeem(ctx, code, studentID, courseID)
	if err != nil {
		return dto.RedeemResponse{}, err
	}

	if result.Redeemed {
		s.invalidateActiveCache(ctx, courseID)
		s.publishEnrollmentEvent(studentID, courseID, code)
	}

	return dto.RedeemResponse{Redeemed: result.Redeemed, Reason: result.Reason}, nil
}

// Disable revokes a code. Returns false when the code does not exist or was
// already disabled; callers treat that as an idempotent no-op, not an error.
func (s *accessCodeService) Disable(ctx context.Context, code, disabledBy string) (bool, error) {
	if disabledBy == "" {
		return false, ErrMissingActor
	}

	accessCode, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	disabled, err := s.codes.Disable(ctx, code, s.now())
	if err != nil {
		return false, err
	}

	if disabled {
		s.invalidateActiveCache(ctx, accessCode.CourseID)
		s.logger.Info().
			Str("disabled_by", disabledBy).
			Uint("course_id", accessCode.CourseID).
			Msg("access code disabled")
	}

	return disabled, nil
}

// Get returns the stored code row as issued, independent of its derived
// status; Stats is the status-bearing view.
func (s *accessCodeService) Get(ctx context.Context, code string) (dto.AccessCodeResponse, error) {
	accessCode, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return dto.AccessCodeResponse{}, ErrCodeNotFound
		}
		return dto.AccessCodeResponse{}, err
	}

	return dto.NewAccessCodeResponse(accessCode), nil
}

func (s *accessCodeService) Stats(ctx context.Context, code string) (dto.AccessCodeStatsResponse, error) {
	accessCode, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return dto.AccessCodeStatsResponse{}, ErrCodeNotFound
		}
		return dto.AccessCodeStatsResponse{}, err
	}

	status := ResolveStatus(accessCode, s.now())

	return dto.AccessCodeStatsResponse{
		Code:          accessCode.Code,
		CourseID:      accessCode.CourseID,
		Status:        status.Status,
		IsValid:       status.IsValid,
		DaysRemaining: status.DaysRemaining,
		IsUsed:        accessCode.IsUsed,
		IsDisabled:    accessCode.IsDisabled,
		ExpiresAt:     accessCode.ExpiresAt,
		UsedAt:        accessCode.UsedAt,
		UsedBy:        accessCode.UsedBy,
	}, nil
}

func (s *accessCodeService) ListActive(ctx context.Context, courseID uint) ([]dto.AccessCodeResponse, error) {
	cacheKey := activeCacheKey(courseID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var responses []dto.AccessCodeResponse
			if err := json.Unmarshal([]byte(cached), &responses); err == nil {
				return responses, nil
			}
		}
	}

	codes, err := s.codes.ListActive(ctx, courseID, s.now())
	if err != nil {
		return nil, err
	}

	responses := dto.NewAccessCodeResponseSlice(codes)

	if s.redis != nil && s.cacheTTL > 0 {
		if encoded, err := json.Marshal(responses); err == nil {
			if err := s.redis.Set(ctx, cacheKey, encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache active codes")
			}
		}
	}

	return responses, nil
}

func (s *accessCodeService) ListPaged(ctx context.Context, courseID uint, page, pageSize int) (dto.PagedAccessCodesResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	codes, total, err := s.codes.ListPaged(ctx, courseID, page, pageSize)
	if err != nil {
		return dto.PagedAccessCodesResponse{}, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	return dto.PagedAccessCodesResponse{
		Items: dto.NewAccessCodeResponseSlice(codes),
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *accessCodeService) requireCourse(ctx context.Context, courseID uint) error {
	exists, err := s.courses.Exists(ctx, courseID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCourseNotFound
	}

	return nil
}

func (s *accessCodeService) invalidateActiveCache(ctx context.Context, courseID uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, activeCacheKey(courseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate active codes cache")
	}
}

// publishEnrollmentEvent emits a best-effort NATS event after the redemption
// transaction committed. Failures are logged, never propagated; delivery is
// another system's job.
func (s *accessCodeService) publishEnrollmentEvent(studentID string, courseID uint, code string) {
	if s.nats == nil || s.natsSubject == "" {
		return
	}

	event := struct {
		StudentID  string    `json:"student_id"`
		CourseID   uint      `json:"course_id"`
		Code       string    `json:"code"`
		EnrolledAt time.Time `json:"enrolled_at"`
	}{studentID, courseID, code, s.now()}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode enrollment event")
		return
	}

	if err := s.nats.Publish(s.natsSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish enrollment event")
	}
}

func activeCacheKey(courseID uint) string {
	return fmt.Sprintf("access_codes:active:%d", courseID)
}
