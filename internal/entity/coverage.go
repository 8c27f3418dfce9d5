package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Coverage is one line of insurance owned by a Policy.
type Coverage struct {
	ID                  uuid.UUID       `json:"id"`
	PolicyID            uuid.UUID       `json:"policy_id"`
	CoverageType        string          `json:"coverage_type"`
	CoverageSubtype     *string         `json:"coverage_subtype,omitempty"`
	EachOccurrenceLimit *float64        `json:"each_occurrence_limit,omitempty"`
	AggregateLimit      *float64        `json:"aggregate_limit,omitempty"`
	Deductible          *float64        `json:"deductible,omitempty"`
	Premium             *float64        `json:"premium,omitempty"`
	IsOccurrenceForm    *bool           `json:"is_occurrence_form,omitempty"`
	IsClaimsMade        *bool           `json:"is_claims_made,omitempty"`
	RetroactiveDate     *time.Time      `json:"retroactive_date,omitempty"`
	Details             json.RawMessage `json:"details,omitempty"`
	Confidence          float64         `json:"confidence"`
	RawOutput           string          `json:"raw_output,omitempty"`
}
