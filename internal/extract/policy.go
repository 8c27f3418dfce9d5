package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/llm"
)

const policySystemPrompt = `You read the declarations pages of a commercial insurance policy.
Return ONLY a JSON object with these keys (use null when a value is not shown):
  "policyNumber", "insuredName" (the first named insured), "effectiveDate", "expirationDate" (YYYY-MM-DD),
  "carrierName", "carrierNaicCode" (5 digits), "totalPremium" (number, no currency symbols),
  "status" ("active", "expired", "cancelled" or null), "confidence" (0 to 1).
A policy period written as "January 1, 2024 to January 1, 2025" gives both dates.`

type PolicyExtractor struct {
	gw         llm.Completer
	charBudget int
	log        *slog.Logger
}

func NewPolicyExtractor(gw llm.Completer, charBudget int, logger *slog.Logger) *PolicyExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if charBudget <= 0 {
		charBudget = 12000
	}
	return &PolicyExtractor{gw: gw, charBudget: charBudget, log: logger}
}

func (e *PolicyExtractor) ExtractPolicy(ctx context.Context, chunks []entity.Chunk) PolicyResult {
	start := time.Now()
	user := "Declarations text:\n" + joinChunks(declarationChunks(chunks), e.charBudget)

	raw, err := e.gw.Complete(ctx, policySystemPrompt, user)
	out := PolicyResult{RawOutput: raw}
	if err != nil {
		e.log.Error("policy.gateway_failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		out.Error = err.Error()
		return out
	}

	scan := llm.ScanJSON(raw)
	if !scan.OK() {
		e.log.Warn("policy.unparseable", "err", scan.Err, "raw_len", len(raw))
		out.Error = scan.Err.Error()
		return out
	}
	m := scan.Object

	out.Success = true
	out.PolicyNumber = llm.String(m["policyNumber"])
	out.InsuredName = llm.String(m["insuredName"])
	out.EffectiveDate = llm.Date(m["effectiveDate"])
	out.ExpirationDate = llm.Date(m["expirationDate"])
	out.CarrierName = llm.String(m["carrierName"])
	out.CarrierNAICCode = llm.String(m["carrierNaicCode"])
	out.TotalPremium = llm.Float(m["totalPremium"])
	out.Status = llm.String(m["status"])
	out.Confidence = llm.Confidence(m, "confidence")

	if err := llm.ValidateAgainstSchema("policy", llm.PolicySchema(), m); err != nil {
		e.log.Warn("policy.schema_mismatch", "err", err)
		out.Confidence *= schemaMismatchFactor
	}

	e.log.Info("policy.ok",
		"has_policy_number", out.PolicyNumber != nil,
		"has_insured", out.InsuredName != nil,
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// ToEntity copies the extracted fields onto a new Policy row.
func (r PolicyResult) ToEntity() *entity.Policy {
	return &entity.Policy{
		PolicyNumber:    r.PolicyNumber,
		InsuredName:     r.InsuredName,
		CarrierName:     r.CarrierName,
		CarrierNAICCode: r.CarrierNAICCode,
		EffectiveDate:   r.EffectiveDate,
		ExpirationDate:  r.ExpirationDate,
		TotalPremium:    r.TotalPremium,
		Status:          r.Status,
	}
}
