package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Policy is the durable record produced by one successful structuring run.
type Policy struct {
	ID               uuid.UUID       `json:"id"`
	DocumentID       uuid.UUID       `json:"document_id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	PolicyNumber     *string         `json:"policy_number,omitempty"`
	InsuredName      *string         `json:"insured_name,omitempty"`
	CarrierName      *string         `json:"carrier_name,omitempty"`
	CarrierNAICCode  *string         `json:"carrier_naic_code,omitempty"`
	EffectiveDate    *time.Time      `json:"effective_date,omitempty"`
	ExpirationDate   *time.Time      `json:"expiration_date,omitempty"`
	TotalPremium     *float64        `json:"total_premium,omitempty"`
	Status           *string         `json:"status,omitempty"`
	DocumentType     string          `json:"document_type"`
	Confidence       float64         `json:"confidence"`
	NeedsHumanReview bool            `json:"needs_human_review"`
	ValidationIssues json.RawMessage `json:"validation_issues,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	Coverages        []Coverage      `json:"coverages,omitempty"`
}
