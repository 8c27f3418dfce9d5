package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/chunker"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/pdftext"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
	"github.com/joseph-ayodele/policy-structurer/internal/storage"
)

// ErrScannedDocument is returned by the text stage when scanned documents
// are configured to be blocked.
var ErrScannedDocument = errors.New("document appears to be scanned")

type TextStage struct {
	Documents    repository.DocumentRepository
	Chunks       repository.ChunkRepository
	Storage      storage.Storage
	Extractor    *pdftext.Extractor
	Chunker      *chunker.Chunker
	BlockScanned bool
	Logger       *slog.Logger
}

func NewTextStage(
	docs repository.DocumentRepository,
	chunks repository.ChunkRepository,
	st storage.Storage,
	ex *pdftext.Extractor,
	ch *chunker.Chunker,
	blockScanned bool,
	logger *slog.Logger,
) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{
		Documents:    docs,
		Chunks:       chunks,
		Storage:      st,
		Extractor:    ex,
		Chunker:      ch,
		BlockScanned: blockScanned,
		Logger:       logger,
	}
}

// Run downloads the document, extracts and scores its text, and stores the
// chunks. Scanned documents are flagged and still chunked unless
// BlockScanned is set.
func (s *TextStage) Run(ctx context.Context, documentID uuid.UUID) (*entity.Document, pdftext.Result, error) {
	start := time.Now()
	doc, err := s.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, pdftext.Result{}, fmt.Errorf("get document: %w", err)
	}

	rc, err := s.Storage.Download(ctx, doc.StoragePath)
	if err != nil {
		return doc, pdftext.Result{}, s.failed(ctx, doc, fmt.Errorf("download: %w", err))
	}
	res := s.Extractor.Extract(ctx, rc, doc.Filename)
	_ = rc.Close()

	if !res.Success {
		return doc, res, s.failed(ctx, doc, fmt.Errorf("pdf text extraction: %s", res.Error))
	}
	text := repository.TextResult{
		PageCount:        res.PageCount,
		QualityScore:     res.QualityScore,
		AppearsScanned:   res.AppearsScanned,
		ScannedPageCount: res.ScannedPageCount,
		IsHybrid:         res.IsHybridDocument,
	}
	if err := s.Documents.UpdateTextResult(ctx, doc.ID, text); err != nil {
		return doc, res, err
	}
	if res.AppearsScanned {
		s.Logger.Warn("text_stage.scanned",
			"document_id", doc.ID,
			"quality", res.QualityScore,
			"scanned_pages", res.ScannedPageCount,
			"blocked", s.BlockScanned,
		)
		if s.BlockScanned {
			return doc, res, s.failed(ctx, doc, ErrScannedDocument)
		}
	}

	chunks := s.Chunker.Chunk(res.PageTexts)
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		chunks[i].TenantID = doc.TenantID
	}
	if err := s.Chunks.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return doc, res, s.failed(ctx, doc, err)
	}
	if err := s.Documents.UpdateStatus(ctx, doc.ID, constants.DocumentStatusTextExtracted, nil); err != nil {
		return doc, res, err
	}

	s.Logger.Info("text_stage.ok",
		"document_id", doc.ID,
		"pages", res.PageCount,
		"quality", res.QualityScore,
		"hybrid", res.IsHybridDocument,
		"chunks", len(chunks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, res, nil
}

func (s *TextStage) failed(ctx context.Context, doc *entity.Document, cause error) error {
	msg := cause.Error()
	if err := s.Documents.UpdateStatus(context.WithoutCancel(ctx), doc.ID, constants.DocumentStatusTextFailed, &msg); err != nil {
		s.Logger.Warn("text_stage.status_update_failed", "document_id", doc.ID, "err", err)
	}
	s.Logger.Error("text_stage.failed", "document_id", doc.ID, "err", cause)
	return cause
}
