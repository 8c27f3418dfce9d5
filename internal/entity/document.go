package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded policy file and its text-stage outcome.
type Document struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	StoragePath      string    `json:"storage_path"`
	Filename         string    `json:"filename"`
	Status           string    `json:"status"`
	PageCount        int       `json:"page_count"`
	QualityScore     float64   `json:"quality_score"`
	AppearsScanned   bool      `json:"appears_scanned"`
	ScannedPageCount int       `json:"scanned_page_count"`
	IsHybrid         bool      `json:"is_hybrid"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
