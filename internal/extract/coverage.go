package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/llm"
)

const coverageBasePrompt = `You extract one coverage line from a commercial insurance policy.
Return ONLY a JSON object with these keys (use null when a value is not shown):
  "coverageType", "coverageSubtype",
  "eachOccurrenceLimit", "aggregateLimit", "deductible", "premium" (numbers, no currency symbols),
  "isOccurrenceForm", "isClaimsMade" (true or false),
  "retroactiveDate" (YYYY-MM-DD),
  "details" (object with coverage-specific values),
  "confidence" (0 to 1).
`

// CoverageExtractorFactory dispatches each coverage type to its family and
// runs the shared extraction algorithm.
type CoverageExtractorFactory struct {
	gw         llm.Completer
	charBudget int
	log        *slog.Logger
}

func NewCoverageExtractorFactory(gw llm.Completer, charBudget int, logger *slog.Logger) *CoverageExtractorFactory {
	if logger == nil {
		logger = slog.Default()
	}
	if charBudget <= 0 {
		charBudget = 16000
	}
	return &CoverageExtractorFactory{gw: gw, charBudget: charBudget, log: logger}
}

// FamilyOf reports which extractor family serves a coverage type.
func (f *CoverageExtractorFactory) FamilyOf(t constants.CoverageType) constants.CoverageFamily {
	return familyFor(t).kind
}

func (f *CoverageExtractorFactory) ExtractCoverage(ctx context.Context, t constants.CoverageType, chunks []entity.Chunk) CoverageResult {
	fam := familyFor(t)
	log := f.log.With("coverage_type", t, "family", fam.kind)
	start := time.Now()

	out := CoverageResult{CoverageType: t, Family: fam.kind, Details: map[string]any{}}

	system := coverageBasePrompt + "\n" + fam.prompt
	raw, err := f.gw.Complete(ctx, system, f.userMessage(fam, t, chunks))
	out.RawOutput = raw
	if err != nil {
		log.Error("coverage.gateway_failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		out.Error = err.Error()
		return out
	}

	scan := llm.ScanJSON(raw)
	if !scan.OK() {
		log.Warn("coverage.unparseable", "err", scan.Err, "raw_len", len(raw))
		out.Error = scan.Err.Error()
		return out
	}
	m := scan.Object

	out.CoverageSubtype = llm.String(m["coverageSubtype"])
	out.EachOccurrenceLimit = llm.Float(m["eachOccurrenceLimit"])
	out.AggregateLimit = llm.Float(m["aggregateLimit"])
	out.Deductible = llm.Float(m["deductible"])
	out.Premium = llm.Float(m["premium"])
	out.IsOccurrenceForm = llm.Bool(m["isOccurrenceForm"])
	out.IsClaimsMade = llm.Bool(m["isClaimsMade"])
	out.RetroactiveDate = llm.Date(m["retroactiveDate"])
	out.Confidence = llm.Confidence(m, "confidence")

	for k, v := range llm.Object(m["details"]) {
		out.Details[k] = v
	}
	if fam.promote != nil {
		fam.promote(m, out.Details)
	}

	if err := llm.ValidateAgainstSchema("coverage", llm.CoverageSchema(), m); err != nil {
		log.Warn("coverage.schema_mismatch", "err", err)
		out.Confidence *= schemaMismatchFactor
	}

	log.Info("coverage.ok",
		"confidence", out.Confidence,
		"details", len(out.Details),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (f *CoverageExtractorFactory) userMessage(fam *family, t constants.CoverageType, chunks []entity.Chunk) string {
	label := strings.ReplaceAll(string(t), "_", " ")
	terms := append([]string{label}, fam.terms...)

	var b strings.Builder
	b.WriteString("Coverage type: ")
	b.WriteString(string(t))
	b.WriteString("\n")
	if sentence := fam.contexts[t]; sentence != "" {
		b.WriteString(sentence)
		b.WriteString("\n")
	}
	b.WriteString("\nPolicy text:\n")
	b.WriteString(joinChunks(relevantChunks(chunks, terms), f.charBudget))
	return b.String()
}

// ToEntity converts the result into a Coverage row, serialising details.
func (r CoverageResult) ToEntity() entity.Coverage {
	cov := entity.Coverage{
		CoverageType:        string(r.CoverageType),
		CoverageSubtype:     r.CoverageSubtype,
		EachOccurrenceLimit: r.EachOccurrenceLimit,
		AggregateLimit:      r.AggregateLimit,
		Deductible:          r.Deductible,
		Premium:             r.Premium,
		IsOccurrenceForm:    r.IsOccurrenceForm,
		IsClaimsMade:        r.IsClaimsMade,
		RetroactiveDate:     r.RetroactiveDate,
		Confidence:          r.Confidence,
		RawOutput:           r.RawOutput,
	}
	if len(r.Details) > 0 {
		if b, err := json.Marshal(r.Details); err == nil {
			cov.Details = b
		}
	}
	return cov
}
