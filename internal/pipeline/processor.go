package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Processor coordinates the text stage then the extraction pipeline.
type Processor struct {
	Logger  *slog.Logger
	Text    *TextStage
	Extract *Pipeline
}

func NewProcessor(logger *slog.Logger, text *TextStage, extract *Pipeline) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Text: text, Extract: extract}
}

// ProcessDocument extracts and chunks the stored PDF, then structures it.
// Returns the new policy id.
func (p *Processor) ProcessDocument(ctx context.Context, documentID uuid.UUID) (*uuid.UUID, error) {
	// 1) text stage → page text, quality metrics, stored chunks
	doc, res, err := p.Text.Run(ctx, documentID)
	if err != nil {
		p.Logger.Error("processor.text.failed", "document_id", documentID, "err", err)
		return nil, err
	}
	p.Logger.Info("processor.text.ok",
		"document_id", documentID,
		"pages", res.PageCount,
		"quality", res.QualityScore,
		"scanned", res.AppearsScanned,
	)

	// 2) extraction pipeline → classification, policy, coverages, validation, persistence
	policyID, err := p.Extract.ExtractStructuredData(ctx, doc.ID, doc.TenantID)
	if err != nil {
		p.Logger.Error("processor.extract.failed", "document_id", documentID, "err", err)
		return nil, err
	}
	p.Logger.Info("processor.extract.ok", "document_id", documentID, "policy_id", *policyID)
	return policyID, nil
}
