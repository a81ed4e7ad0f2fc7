package dto

import (
	"time"

	"github.com/edukita-dev/edukita-api/internal/models"
)

// BulkGenerateRequest describes the payload for bulk code generation.
type BulkGenerateRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=1000"`
}

// AccessCodeResponse is the serialized representation returned to API clients.
type AccessCodeResponse struct {
	Code       string     `json:"code"`
	CourseID   uint       `json:"course_id"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	IsUsed     bool       `json:"is_used"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	UsedBy     *string    `json:"used_by,omitempty"`
	IsDisabled bool       `json:"is_disabled"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
}

// NewAccessCodeResponse converts a model into a DTO.
func NewAccessCodeResponse(model models.AccessCode) AccessCodeResponse {
	return AccessCodeResponse{
		Code:       model.Code,
		CourseID:   model.CourseID,
		CreatedBy:  model.CreatedBy,
		CreatedAt:  model.CreatedAt,
		ExpiresAt:  model.ExpiresAt,
		IsUsed:     model.IsUsed,
		UsedAt:     model.UsedAt,
		UsedBy:     model.UsedBy,
		IsDisabled: model.IsDisabled,
		DisabledAt: model.DisabledAt,
	}
}

// NewAccessCodeResponseSlice converts a slice of models into DTOs.
func NewAccessCodeResponseSlice(codes []models.AccessCode) []AccessCodeResponse {
	responses := make([]AccessCodeResponse, 0, len(codes))
	for _, code := range codes {
		responses = append(responses, NewAccessCodeResponse(code))
	}

	return responses
}

// BulkGenerateResponse reports the outcome of a bulk generation request.
// Generated may be lower than Requested when the attempt budget ran out.
type BulkGenerateResponse struct {
	Requested int                  `json:"requested"`
	Generated int                  `json:"generated"`
	Codes     []AccessCodeResponse `json:"codes"`
}

// RedeemResponse reports the outcome of a redemption attempt.
type RedeemResponse struct {
	Redeemed bool   `json:"redeemed"`
	Reason   string `json:"reason,omitempty"`
}

// AccessCodeStatsResponse carries the derived status of a code.
type AccessCodeStatsResponse struct {
	Code          string     `json:"code"`
	CourseID      uint       `json:"course_id"`
	Status        string     `json:"status"`
	IsValid       bool       `json:"is_valid"`
	DaysRemaining int        `json:"days_remaining"`
	IsUsed        bool       `json:"is_used"`
	IsDisabled    bool       `json:"is_disabled"`
	ExpiresAt     time.Time  `json:"expires_at"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	UsedBy        *string    `json:"used_by,omitempty"`
}

// PaginationMeta describes paging information for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// PagedAccessCodesResponse is a page of codes plus paging metadata.
type PagedAccessCodesResponse struct {
	Items      []AccessCodeResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}
