package dto

import (
	"time"

	"hostscore/internal/model"
)

// AssessRequestDTO is used for incoming assessment requests
type AssessRequestDTO struct {
	Address string `json:"address" validate:"required,max=2048"`
	Tier    string `json:"tier" validate:"omitempty,oneof=free paid"`
	Force   bool   `json:"force"`
}

// AssessMetaDTO carries request-scoped context alongside the report
type AssessMetaDTO struct {
	Tier             string     `json:"tier"`
	IsPaid           bool       `json:"is_paid"`
	CacheStatus      string     `json:"cache_status"`
	HiddenFixCount   int        `json:"hidden_fix_count"`
	CreditID         string     `json:"credit_id,omitempty"`
	CreditsRemaining *int       `json:"credits_remaining,omitempty"`
	NextExpiration   *time.Time `json:"next_expiration,omitempty"`
}

// AssessResponseDTO is returned in API responses
type AssessResponseDTO struct {
	Report *model.Report `json:"report"`
	Meta   AssessMetaDTO `json:"meta"`
}

// FullReportResponseDTO wraps a paid report fetched by ID
type FullReportResponseDTO struct {
	Report *model.Report `json:"report"`
}
