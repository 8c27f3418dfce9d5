package validate

import (
	"testing"
	"time"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/extract"
)

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }
func flag(b bool) *bool      { return &b }
func day(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func goodPolicy() extract.PolicyResult {
	return extract.PolicyResult{
		PolicyNumber:    str("GL-2024-TEST-001"),
		InsuredName:     str("Test Company Inc."),
		EffectiveDate:   day(2024, 1, 1),
		ExpirationDate:  day(2025, 1, 1),
		CarrierNAICCode: str("23787"),
		TotalPremium:    num(12500),
		Confidence:      0.90,
		Success:         true,
	}
}

func coverages(conf ...float64) []extract.CoverageResult {
	types := []constants.CoverageType{constants.GeneralLiability, constants.Umbrella, constants.CommercialProperty}
	out := make([]extract.CoverageResult, len(conf))
	for i, c := range conf {
		out[i] = extract.CoverageResult{CoverageType: types[i%len(types)], Confidence: c}
	}
	return out
}

func TestBlendWeighting(t *testing.T) {
	v := New(DefaultConfig())
	class := extract.ClassificationResult{Confidence: 0.95}

	high := v.ValidateComplete(Input{Classification: class, Policy: goodPolicy(), Coverages: coverages(0.85, 0.88, 0.92)})
	if high.AdjustedConfidence <= 0.85 {
		t.Errorf("high confidence run blended to %.4f, want > 0.85", high.AdjustedConfidence)
	}
	if high.NeedsHumanReview || !high.IsValid {
		t.Errorf("clean high-confidence run flagged: %+v", high)
	}

	low := v.ValidateComplete(Input{Classification: class, Policy: goodPolicy(), Coverages: coverages(0.50, 0.45)})
	if low.AdjustedConfidence > 0.65 {
		t.Errorf("low coverage confidence blended to %.4f, want <= 0.65", low.AdjustedConfidence)
	}
	if !low.NeedsHumanReview {
		t.Error("low confidence run must need review")
	}

	none := v.ValidateComplete(Input{Classification: class, Policy: goodPolicy()})
	if none.AdjustedConfidence <= 0.5 || none.AdjustedConfidence >= 0.8 {
		t.Errorf("no coverages blended to %.4f, want in (0.5, 0.8)", none.AdjustedConfidence)
	}
	if len(none.Warnings) != 1 || none.Warnings[0].Code != CodeNoCoverages {
		t.Errorf("warnings = %+v", none.Warnings)
	}
}

func TestWeightsAreNormalised(t *testing.T) {
	v := New(Config{ClassificationWeight: 1, PolicyWeight: 1, CoverageWeight: 2})
	got := v.BlendConfidence(1, 1, []float64{0})
	if got < 0.499 || got > 0.501 {
		t.Errorf("blend = %v, want 0.5", got)
	}
	if w := v.Config(); w.CoverageWeight != 0.5 || w.ReviewThreshold != 0.70 {
		t.Errorf("config = %+v", w)
	}
}

func TestScannedPenalty(t *testing.T) {
	v := New(DefaultConfig())
	in := Input{Classification: extract.ClassificationResult{Confidence: 0.95}, Policy: goodPolicy(), Coverages: coverages(0.70, 0.70)}
	clean := v.ValidateComplete(in)
	if clean.NeedsHumanReview {
		t.Fatalf("clean run at %.4f should pass review", clean.AdjustedConfidence)
	}
	in.AppearsScanned = true
	scanned := v.ValidateComplete(in)
	want := clean.AdjustedConfidence * 0.85
	if scanned.AdjustedConfidence < want-1e-9 || scanned.AdjustedConfidence > want+1e-9 {
		t.Errorf("scanned = %v, want %v", scanned.AdjustedConfidence, want)
	}
	if !scanned.NeedsHumanReview {
		t.Error("scanned run dropping below threshold must need review")
	}
}

func TestPolicyRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *extract.PolicyResult)
		errCode  string
		warnCode string
	}{
		{"missing insured", func(p *extract.PolicyResult) { p.InsuredName = nil }, CodeRequired, ""},
		{"blank insured", func(p *extract.PolicyResult) { p.InsuredName = str("  ") }, CodeRequired, ""},
		{"dates reversed", func(p *extract.PolicyResult) { p.ExpirationDate = day(2023, 12, 31) }, CodeDateOrder, ""},
		{"negative premium", func(p *extract.PolicyResult) { p.TotalPremium = num(-1) }, CodeNegativeAmount, ""},
		{"short number", func(p *extract.PolicyResult) { p.PolicyNumber = str("GL1") }, "", CodeShortPolicyNumber},
		{"bad naic", func(p *extract.PolicyResult) { p.CarrierNAICCode = str("2378A") }, "", CodeInvalidNAIC},
		{"same day is fine", func(p *extract.PolicyResult) { p.ExpirationDate = day(2024, 1, 1) }, "", ""},
	}
	v := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := goodPolicy()
			tt.mutate(&p)
			errs, warns := v.ValidatePolicy(p)
			if !hasCode(errs, tt.errCode) || (tt.errCode == "" && len(errs) > 0) {
				t.Errorf("errors = %+v, want %q", errs, tt.errCode)
			}
			if !hasCode(warns, tt.warnCode) || (tt.warnCode == "" && len(warns) > 0) {
				t.Errorf("warnings = %+v, want %q", warns, tt.warnCode)
			}
		})
	}
}

func TestCoverageRules(t *testing.T) {
	v := New(DefaultConfig())

	errs, _ := v.ValidateCoverage(0, extract.CoverageResult{AggregateLimit: num(-5), Premium: num(-1)})
	if len(errs) != 2 || errs[0].Field != "coverages[0].aggregate_limit" || errs[0].Code != CodeNegativeAmount {
		t.Errorf("negative amounts: %+v", errs)
	}

	_, warns := v.ValidateCoverage(1, extract.CoverageResult{CoverageType: constants.CyberLiability, IsClaimsMade: flag(true)})
	if !hasCode(warns, CodeMissingRetroDate) {
		t.Errorf("claims-made without retro date: %+v", warns)
	}
	_, warns = v.ValidateCoverage(1, extract.CoverageResult{IsClaimsMade: flag(true), RetroactiveDate: day(2015, 6, 1)})
	if len(warns) != 0 {
		t.Errorf("retro date present: %+v", warns)
	}

	_, warns = v.ValidateCoverage(2, extract.CoverageResult{EachOccurrenceLimit: num(10000), Deductible: num(10000)})
	if !hasCode(warns, CodeHighDeductible) {
		t.Errorf("deductible equal to limit: %+v", warns)
	}
}

func TestDuplicateCoveragesAreKept(t *testing.T) {
	v := New(DefaultConfig())
	covs := []extract.CoverageResult{
		{CoverageType: constants.GeneralLiability, Confidence: 0.9},
		{CoverageType: constants.GeneralLiability, Confidence: 0.9},
	}
	res := v.ValidateComplete(Input{Classification: extract.ClassificationResult{Confidence: 0.9}, Policy: goodPolicy(), Coverages: covs})
	if !hasCode(res.Warnings, CodeDuplicateCoverage) {
		t.Errorf("warnings = %+v", res.Warnings)
	}
	if res.Warnings[0].Field != "coverages[1].coverage_type" {
		t.Errorf("duplicate reported on %q", res.Warnings[0].Field)
	}
}

func TestErrorsForceReview(t *testing.T) {
	v := New(DefaultConfig())
	p := goodPolicy()
	p.InsuredName = nil
	p.Confidence = 1
	res := v.ValidateComplete(Input{Classification: extract.ClassificationResult{Confidence: 1}, Policy: p, Coverages: coverages(1)})
	if res.IsValid || !res.NeedsHumanReview {
		t.Errorf("missing insured must invalidate and require review: %+v", res)
	}
	if res.AdjustedConfidence < 0.99 {
		t.Errorf("errors must not change the blend, got %v", res.AdjustedConfidence)
	}
}

func hasCode(issues []Issue, code string) bool {
	if code == "" {
		return true
	}
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}
