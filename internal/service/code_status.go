package service

import (
	"time"

	"github.com/edukita-dev/edukita-api/internal/models"
)

// Display statuses derived from an access code's stored flags. The precedence
// order Disabled > Expired > Used > Valid is fixed: a code that was used and
// later disabled reports Disabled.
const (
	StatusDisabled = "Disabled"
	StatusExpired  = "Expired"
	StatusUsed     = "Used"
	StatusValid    = "Valid"
)

// CodeStatus is the derived, never-persisted view of an access code's state.
type CodeStatus struct {
	IsValid       bool
	DaysRemaining int
	Status        string
}

// ResolveStatus derives the display status of a code at the given instant.
// This is the single place the precedence rule lives; every read path that
// reports a status must go through it.
func ResolveStatus(code models.AccessCode, now time.Time) CodeStatus {
	isExpired := !code.ExpiresAt.After(now)

	daysRemaining := 0
	if !isExpired {
		daysRemaining = int(code.ExpiresAt.Sub(now) / (24 * time.Hour))
	}

	status := StatusValid
	switch {
	case code.IsDisabled:
		status = StatusDisabled
	case isExpired:
		status = StatusExpired
	case code.IsUsed:
		status = StatusUsed
	}

	return CodeStatus{
		IsValid:       !code.IsUsed && !code.IsDisabled && !isExpired,
		DaysRemaining: daysRemaining,
		Status:        status,
	}
}
