package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExtractJob is the audit row for one structuring run.
type ExtractJob struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   uuid.UUID  `json:"document_id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	PolicyID     *uuid.UUID `json:"policy_id,omitempty"`
	Status       string     `json:"status"`
	State        string     `json:"state"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	Confidence   *float64   `json:"confidence,omitempty"`
	NeedsReview  bool       `json:"needs_review"`
}
