// Package pdftext turns PDF bytes into per-page text with a quality score.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/policy-structurer/constants"
)

// PageText is the text of one physical page.
type PageText struct {
	PageNumber int
	Text       string
}

// Result is the outcome of one extraction. It is never partially filled on
// failure: Success=false carries only Error.
type Result struct {
	Success          bool
	PageCount        int
	PageTexts        map[int]string
	PageScores       map[int]float64
	QualityScore     float64
	AppearsScanned   bool
	ScannedPageCount int
	IsHybridDocument bool
	Error            string
}

// Pages returns the page texts in reading order.
func (r Result) Pages() []PageText {
	nums := make([]int, 0, len(r.PageTexts))
	for n := range r.PageTexts {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]PageText, 0, len(nums))
	for _, n := range nums {
		out = append(out, PageText{PageNumber: n, Text: r.PageTexts[n]})
	}
	return out
}

// Config controls scanned-page detection.
type Config struct {
	// ScannedThreshold is the quality score under which a page, or the
	// document mean, counts as scanned.
	ScannedThreshold float64
}

type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.ScannedThreshold <= 0 {
		cfg.ScannedThreshold = constants.ScannedQualityThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract reads the PDF and scores every page. Failures are reported in the
// Result, never as a panic or error.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, filename string) (res Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("pdftext.extract.panic", "filename", filename, "panic", rec)
			res = Result{Error: fmt.Sprintf("malformed pdf: %v", rec)}
		}
	}()

	if r == nil {
		return Result{Error: "no input stream"}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{Error: fmt.Sprintf("read stream: %v", err)}
	}
	if len(data) == 0 {
		e.logger.Warn("pdftext.extract.empty", "filename", filename)
		return Result{Error: "empty pdf stream"}
	}

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		e.logger.Error("pdftext.extract.read_failed", "filename", filename, "err", err)
		return Result{Error: fmt.Sprintf("pdfcpu read: %v", err)}
	}

	res = Result{
		Success:    true,
		PageCount:  pdfCtx.PageCount,
		PageTexts:  make(map[int]string, pdfCtx.PageCount),
		PageScores: make(map[int]float64, pdfCtx.PageCount),
	}
	imagePages := 0
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return Result{Error: fmt.Sprintf("canceled: %v", err)}
		}
		text := e.pageText(pdfCtx, pageNr, filename)
		res.PageTexts[pageNr] = text
		score := ScorePage(text)
		res.PageScores[pageNr] = score
		if score < e.cfg.ScannedThreshold {
			res.ScannedPageCount++
		}
		if pdfCtx.Optimize != nil && len(pdfcpu.ImageObjNrs(pdfCtx, pageNr)) > 0 {
			imagePages++
		}
	}

	res.QualityScore = ScoreDocument(res.PageScores)
	res.AppearsScanned = res.QualityScore < e.cfg.ScannedThreshold
	res.IsHybridDocument = res.ScannedPageCount > 0 && res.ScannedPageCount < res.PageCount

	e.logger.Info("pdftext.extract.ok",
		"filename", filename,
		"pages", res.PageCount,
		"quality", res.QualityScore,
		"scanned_pages", res.ScannedPageCount,
		"image_pages", imagePages,
		"hybrid", res.IsHybridDocument,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// pageText runs the layout-aware pass and falls back to operator-order text
// when the content stream cannot be tokenized.
func (e *Extractor) pageText(pdfCtx *model.Context, pageNr int, filename string) string {
	rd, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || rd == nil {
		if err != nil {
			e.logger.Warn("pdftext.page.content_failed", "filename", filename, "page", pageNr, "err", err)
		}
		return ""
	}
	content, err := io.ReadAll(rd)
	if err != nil || len(content) == 0 {
		return ""
	}
	text, err := LayoutText(content)
	if err != nil {
		e.logger.Warn("pdftext.page.layout_fallback", "filename", filename, "page", pageNr, "err", err)
		return plainText(content)
	}
	return text
}

// LayoutText interprets a decoded content stream and returns its words
// grouped into lines.
func LayoutText(content []byte) (string, error) {
	ops, err := parseContent(content)
	if err != nil {
		return "", err
	}
	li := newLayoutInterpreter()
	li.run(ops)
	return layoutText(li.words), nil
}
