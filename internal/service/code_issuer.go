package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/edukita-dev/edukita-api/internal/observability"
	"github.com/edukita-dev/edukita-api/internal/repository"
)

const (
	// MaxUniqueAttempts bounds the generate-and-probe loop for a single code.
	MaxUniqueAttempts = 10

	// MaxBulkAttemptsPerCode scales the total attempt budget for a batch.
	MaxBulkAttemptsPerCode = 50
)

// ErrCodeSpaceExhausted signals that the attempt budget ran out while looking
// for an unused code. Given 36^12 combinations this means the store or the
// randomness source is misbehaving, so it is treated as fatal rather than as
// a business outcome.
var ErrCodeSpaceExhausted = errors.New("access code space exhausted")

// Generator produces candidate codes for the issuer.
type Generator interface {
	Generate() string
}

// CodeIssuer guarantees uniqueness of freshly generated codes against the
// persisted store, for single codes and for batches.
type CodeIssuer struct {
	generator Generator
	codes     repository.AccessCodeRepository
	logger    zerolog.Logger
}

// NewCodeIssuer builds an issuer around a generator and the code store.
func NewCodeIssuer(generator Generator, codes repository.AccessCodeRepository, logger zerolog.Logger) *CodeIssuer {
	return &CodeIssuer{
		generator: generator,
		codes:     codes,
		logger:    logger.With().Str("component", "code_issuer").Logger(),
	}
}

// GenerateUnique returns a code that does not exist in the store, probing the
// store once per candidate. Fails with ErrCodeSpaceExhausted after
// MaxUniqueAttempts collisions.
func (i *CodeIssuer) GenerateUnique(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= MaxUniqueAttempts; attempt++ {
		candidate := i.generator.Generate()

		exists, err := i.codes.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			observability.IssueAttempts().Observe(float64(attempt))
			return candidate, nil
		}

		i.logger.Warn().Int("attempt", attempt).Msg("generated code collided with existing code")
	}

	return "", ErrCodeSpaceExhausted
}

// GenerateUniqueBatch produces up to quantity codes for a course. The set of
// existing non-disabled codes for the course is loaded once, and candidates
// are then checked purely in memory against that set and against the batch
// itself. The attempt budget is quantity * MaxBulkAttemptsPerCode; if it runs
// out, the partial batch produced so far is returned and the caller reports
// the shortfall.
//
// The in-memory existence check is scoped to the issuing course, not global.
// Two concurrent batches for different courses can in principle mint the same
// code; the unique index on the code column is the final arbiter.
func (i *CodeIssuer) GenerateUniqueBatch(ctx context.Context, courseID uint, quantity int) ([]string, error) {
	existing, err := i.codes.CourseCodes(ctx, courseID)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(existing)+quantity)
	for _, code := range existing {
		taken[code] = struct{}{}
	}

	batch := make([]string, 0, quantity)
	budget := quantity * MaxBulkAttemptsPerCode

	for attempt := 0; attempt < budget && len(batch) < quantity; attempt++ {
		candidate := i.generator.Generate()
		if _, clash := taken[candidate]; clash {
			continue
		}

		taken[candidate] = struct{}{}
		batch = append(batch, candidate)
	}

	if len(batch) < quantity {
		i.logger.Warn().
			Uint("course_id", courseID).
			Int("requested", quantity).
			Int("produced", len(batch)).
			Msg("bulk generation budget exhausted before reaching requested quantity")
	}

	return batch, nil
}
