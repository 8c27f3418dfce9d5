package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/llm"
)

const classifierSystemPrompt = `You classify commercial insurance documents.
Return ONLY a JSON object with these keys:
  "documentType": one of "policy", "binder", "certificate", "endorsement", "quote", "other";
  "coveragesDetected": array of coverage types present, using these identifiers when they apply: %s;
  "sections": array of {"label", "pageStart", "pageEnd"} for declarations, coverage forms, endorsements and conditions;
  "confidence": number between 0 and 1.
List a coverage only when the document provides it, not when it is merely excluded or referenced.`

type DocumentClassifier struct {
	gw         llm.Completer
	charBudget int
	log        *slog.Logger
}

func NewDocumentClassifier(gw llm.Completer, charBudget int, logger *slog.Logger) *DocumentClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	if charBudget <= 0 {
		charBudget = 24000
	}
	return &DocumentClassifier{gw: gw, charBudget: charBudget, log: logger}
}

func (c *DocumentClassifier) Classify(ctx context.Context, chunks []entity.Chunk) ClassificationResult {
	start := time.Now()
	system := strings.Replace(classifierSystemPrompt, "%s", strings.Join(constants.AsStringSlice(), ", "), 1)
	user := "Document text:\n" + joinChunks(chunks, c.charBudget)

	out := ClassificationResult{DocumentType: "unknown", CoveragesDetected: []constants.CoverageType{}}
	raw, err := c.gw.Complete(ctx, system, user)
	out.RawOutput = raw
	if err != nil {
		c.log.Error("classify.gateway_failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		return out
	}

	scan := llm.ScanJSON(raw)
	if !scan.OK() {
		c.log.Warn("classify.unparseable", "err", scan.Err, "raw_len", len(raw))
		return out
	}
	m := scan.Object

	if s := llm.String(m["documentType"]); s != nil {
		out.DocumentType = strings.ToLower(*s)
	}
	out.CoveragesDetected = c.coverages(m["coveragesDetected"])
	out.Sections = sections(m["sections"])
	out.Confidence = llm.Confidence(m, "confidence")

	if err := llm.ValidateAgainstSchema("classification", llm.ClassificationSchema(), m); err != nil {
		c.log.Warn("classify.schema_mismatch", "err", err)
		out.Confidence *= schemaMismatchFactor
	}

	c.log.Info("classify.ok",
		"document_type", out.DocumentType,
		"coverages", len(out.CoveragesDetected),
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// coverages canonicalises the detected labels, dropping duplicates. Labels
// outside the vocabulary are kept in normalised form for the generic extractor.
func (c *DocumentClassifier) coverages(v any) []constants.CoverageType {
	out := []constants.CoverageType{}
	seen := map[constants.CoverageType]bool{}
	for _, label := range llm.Strings(v) {
		ct, known := constants.CanonicalizeCoverage(label)
		if ct == "" {
			continue
		}
		if !known {
			c.log.Warn("classify.unknown_coverage", "label", label, "normalized", ct)
		}
		if seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	return out
}

func sections(v any) []SectionSpan {
	arr, _ := v.([]any)
	var out []SectionSpan
	for _, item := range arr {
		m := llm.Object(item)
		label := llm.String(m["label"])
		if label == nil {
			continue
		}
		span := SectionSpan{Label: strings.ToLower(*label)}
		if p := llm.Float(m["pageStart"]); p != nil {
			span.PageStart = int(*p)
		}
		if p := llm.Float(m["pageEnd"]); p != nil {
			span.PageEnd = int(*p)
		}
		if span.PageEnd < span.PageStart {
			span.PageEnd = span.PageStart
		}
		out = append(out, span)
	}
	return out
}
