package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/constants"
)

// Chunk is a bounded span of document text with page provenance.
// Adjacent chunks may share overlapping text.
type Chunk struct {
	DocumentID      uuid.UUID             `json:"document_id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	Index           int                   `json:"index"`
	Text            string                `json:"text"`
	PageStart       int                   `json:"page_start"`
	PageEnd         int                   `json:"page_end"`
	EstimatedTokens int                   `json:"estimated_tokens"`
	SectionType     constants.SectionType `json:"section_type,omitempty"`
}
