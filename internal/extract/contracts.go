// Package extract turns chunk text into typed policy data through the
// completion gateway: document classification, policy-level fields, and one
// specialized extractor per coverage family.
package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

// schemaMismatchFactor scales a stage's confidence when the model's JSON
// parses but does not have the requested shape.
const schemaMismatchFactor = 0.8

// SectionSpan is a labelled page range reported by the classifier.
type SectionSpan struct {
	Label     string `json:"label"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

type ClassificationResult struct {
	DocumentType      string                   `json:"document_type"`
	CoveragesDetected []constants.CoverageType `json:"coverages_detected"`
	Sections          []SectionSpan            `json:"sections,omitempty"`
	Confidence        float64                  `json:"confidence"`
	RawOutput         string                   `json:"-"`
}

// PolicyResult holds policy-level fields. Success is false only when the
// gateway failed or no JSON could be read; missing fields are not failures.
type PolicyResult struct {
	PolicyNumber    *string
	InsuredName     *string
	EffectiveDate   *time.Time
	ExpirationDate  *time.Time
	CarrierName     *string
	CarrierNAICCode *string
	TotalPremium    *float64
	Status          *string
	Confidence      float64
	Success         bool
	RawOutput       string
	Error           string
}

// CoverageResult is one coverage line as read by its family extractor.
// Confidence 0 means the call or the parse failed; RawOutput is kept either way.
type CoverageResult struct {
	CoverageType        constants.CoverageType
	Family              constants.CoverageFamily
	CoverageSubtype     *string
	EachOccurrenceLimit *float64
	AggregateLimit      *float64
	Deductible          *float64
	Premium             *float64
	IsOccurrenceForm    *bool
	IsClaimsMade        *bool
	RetroactiveDate     *time.Time
	Details             map[string]any
	Confidence          float64
	RawOutput           string
	Error               string
}

// Classifier labels a document and lists the coverages it carries.
type Classifier interface {
	Classify(ctx context.Context, chunks []entity.Chunk) ClassificationResult
}

// PolicyFieldExtractor reads policy-level fields from declaration chunks.
type PolicyFieldExtractor interface {
	ExtractPolicy(ctx context.Context, chunks []entity.Chunk) PolicyResult
}

// CoverageExtractor reads one coverage type. It never returns an error; a
// failed extraction is a zero-confidence result.
type CoverageExtractor interface {
	ExtractCoverage(ctx context.Context, coverageType constants.CoverageType, chunks []entity.Chunk) CoverageResult
}
