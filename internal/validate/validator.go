// Package validate applies business rules to extracted policy data and
// blends stage confidences into the score that drives human review. It does
// no I/O.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/policy-structurer/internal/extract"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue codes.
const (
	CodeRequired          = "required"
	CodeDateOrder         = "date_order"
	CodeShortPolicyNumber = "short_policy_number"
	CodeInvalidNAIC       = "invalid_naic"
	CodeNegativeAmount    = "negative_amount"
	CodeMissingRetroDate  = "missing_retro_date"
	CodeHighDeductible    = "high_deductible"
	CodeNoCoverages       = "no_coverages"
	CodeDuplicateCoverage = "duplicate_coverage"
)

const minPolicyNumberLen = 5

var naicPattern = regexp.MustCompile(`^\d{5}$`)

type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Result struct {
	IsValid            bool    `json:"is_valid"`
	Errors             []Issue `json:"errors"`
	Warnings           []Issue `json:"warnings"`
	AdjustedConfidence float64 `json:"adjusted_confidence"`
	NeedsHumanReview   bool    `json:"needs_human_review"`
}

// Input is everything one run extracted for a document.
type Input struct {
	Classification extract.ClassificationResult
	Policy         extract.PolicyResult
	Coverages      []extract.CoverageResult
	AppearsScanned bool
}

type Validator struct {
	cfg Config
}

func New(cfg Config) *Validator {
	return &Validator{cfg: cfg.normalized()}
}

func (v *Validator) Config() Config { return v.cfg }

// ValidatePolicy checks policy-level fields.
func (v *Validator) ValidatePolicy(p extract.PolicyResult) (errs, warns []Issue) {
	if p.InsuredName == nil || strings.TrimSpace(*p.InsuredName) == "" {
		errs = append(errs, Issue{Field: "insured_name", Code: CodeRequired, Message: "insured name is required"})
	}
	if p.EffectiveDate != nil && p.ExpirationDate != nil && p.ExpirationDate.Before(*p.EffectiveDate) {
		errs = append(errs, Issue{
			Field:   "expiration_date",
			Code:    CodeDateOrder,
			Message: fmt.Sprintf("expiration %s precedes effective %s", p.ExpirationDate.Format("2006-01-02"), p.EffectiveDate.Format("2006-01-02")),
		})
	}
	if p.TotalPremium != nil && *p.TotalPremium < 0 {
		errs = append(errs, negative("total_premium", *p.TotalPremium))
	}
	if p.PolicyNumber != nil && len(strings.TrimSpace(*p.PolicyNumber)) < minPolicyNumberLen {
		warns = append(warns, Issue{Field: "policy_number", Code: CodeShortPolicyNumber, Message: fmt.Sprintf("policy number %q is unusually short", *p.PolicyNumber)})
	}
	if p.CarrierNAICCode != nil && !naicPattern.MatchString(strings.TrimSpace(*p.CarrierNAICCode)) {
		warns = append(warns, Issue{Field: "carrier_naic_code", Code: CodeInvalidNAIC, Message: fmt.Sprintf("NAIC code %q is not 5 digits", *p.CarrierNAICCode)})
	}
	return errs, warns
}

// ValidateCoverage checks one coverage; i is its position, used in field paths.
func (v *Validator) ValidateCoverage(i int, c extract.CoverageResult) (errs, warns []Issue) {
	prefix := fmt.Sprintf("coverages[%d].", i)
	for _, amt := range []struct {
		field string
		value *float64
	}{
		{"each_occurrence_limit", c.EachOccurrenceLimit},
		{"aggregate_limit", c.AggregateLimit},
		{"deductible", c.Deductible},
		{"premium", c.Premium},
	} {
		if amt.value != nil && *amt.value < 0 {
			errs = append(errs, negative(prefix+amt.field, *amt.value))
		}
	}
	if c.IsClaimsMade != nil && *c.IsClaimsMade && c.RetroactiveDate == nil {
		warns = append(warns, Issue{Field: prefix + "retroactive_date", Code: CodeMissingRetroDate, Message: fmt.Sprintf("claims-made %s coverage has no retroactive date", c.CoverageType)})
	}
	if c.Deductible != nil && c.EachOccurrenceLimit != nil && *c.EachOccurrenceLimit > 0 && *c.Deductible >= *c.EachOccurrenceLimit {
		warns = append(warns, Issue{Field: prefix + "deductible", Code: CodeHighDeductible, Message: fmt.Sprintf("deductible %.0f is not below the occurrence limit %.0f", *c.Deductible, *c.EachOccurrenceLimit)})
	}
	return errs, warns
}

// ValidateComplete runs every rule over one run's output and decides
// whether a person has to look at it.
func (v *Validator) ValidateComplete(in Input) Result {
	errs, warns := v.ValidatePolicy(in.Policy)

	if len(in.Coverages) == 0 {
		warns = append(warns, Issue{Field: "coverages", Code: CodeNoCoverages, Message: "no coverages were extracted"})
	}
	seen := map[string]int{}
	coverageConf := make([]float64, 0, len(in.Coverages))
	for i, c := range in.Coverages {
		ce, cw := v.ValidateCoverage(i, c)
		errs = append(errs, ce...)
		warns = append(warns, cw...)
		coverageConf = append(coverageConf, c.Confidence)

		key := string(c.CoverageType)
		if first, dup := seen[key]; dup {
			warns = append(warns, Issue{
				Field:   fmt.Sprintf("coverages[%d].coverage_type", i),
				Code:    CodeDuplicateCoverage,
				Message: fmt.Sprintf("%s also appears at coverages[%d]", key, first),
			})
			continue
		}
		seen[key] = i
	}

	adjusted := v.BlendConfidence(in.Classification.Confidence, in.Policy.Confidence, coverageConf)
	if in.AppearsScanned {
		adjusted *= v.cfg.ScannedPenalty
	}
	adjusted = clamp01(adjusted)

	if errs == nil {
		errs = []Issue{}
	}
	if warns == nil {
		warns = []Issue{}
	}
	return Result{
		IsValid:            len(errs) == 0,
		Errors:             errs,
		Warnings:           warns,
		AdjustedConfidence: adjusted,
		NeedsHumanReview:   len(errs) > 0 || adjusted < v.cfg.ReviewThreshold,
	}
}

// BlendConfidence weights the three stages. With no coverages the coverage
// term is the neutral default rather than zero.
func (v *Validator) BlendConfidence(classification, policy float64, coverages []float64) float64 {
	coverage := neutralCoverageConfidence
	if len(coverages) > 0 {
		sum := 0.0
		for _, c := range coverages {
			sum += c
		}
		coverage = sum / float64(len(coverages))
	}
	w := v.cfg
	return clamp01(classification*w.ClassificationWeight + policy*w.PolicyWeight + coverage*w.CoverageWeight)
}

func negative(field string, value float64) Issue {
	return Issue{Field: field, Code: CodeNegativeAmount, Message: fmt.Sprintf("%s is negative (%.2f)", field, value)}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
