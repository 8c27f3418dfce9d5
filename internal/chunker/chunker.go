// Package chunker splits per-page document text into token-bounded,
// overlapping chunks that remember their page range and policy section.
package chunker

import (
	"sort"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

const pageSeparator = "\n\n"

// Config sizes chunks in estimated tokens.
type Config struct {
	TargetTokens  int
	MaxTokens     int
	OverlapTokens int
}

func DefaultConfig() Config {
	return Config{TargetTokens: 500, MaxTokens: 1000, OverlapTokens: 50}
}

type Chunker struct {
	cfg Config
}

func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = def.TargetTokens
	}
	if cfg.TargetTokens > cfg.MaxTokens {
		cfg.TargetTokens = cfg.MaxTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	if cfg.OverlapTokens >= cfg.TargetTokens {
		cfg.OverlapTokens = cfg.TargetTokens / 10
	}
	return &Chunker{cfg: cfg}
}

func (c *Chunker) Config() Config { return c.cfg }

// buffer is the rolling text window with page and section provenance.
type buffer struct {
	text     strings.Builder
	pages    []mark[int]
	sections []mark[constants.SectionType]
	// fresh is the offset where text not yet emitted in any chunk begins.
	fresh int
}

func (b *buffer) append(page int, text string) {
	if b.text.Len() > 0 {
		b.text.WriteString(pageSeparator)
	}
	start := b.text.Len()
	b.pages = append(b.pages, mark[int]{offset: start, value: page})
	for _, h := range headerMarks(text) {
		b.sections = append(b.sections, mark[constants.SectionType]{offset: start + h.offset, value: h.value})
	}
	b.text.WriteString(text)
}

// Chunk splits pages (keyed by 1-based page number) into chunks. Blank pages
// contribute nothing; empty input yields an empty slice.
func (c *Chunker) Chunk(pages map[int]string) []entity.Chunk {
	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	out := make([]entity.Chunk, 0)
	var buf buffer
	for _, n := range nums {
		text := strings.TrimRightFunc(strings.ReplaceAll(pages[n], "\r\n", "\n"), unicode.IsSpace)
		if strings.TrimSpace(text) == "" {
			continue
		}
		buf.append(n, text)
		for EstimateTokens(buf.text.String()) > c.cfg.MaxTokens {
			out = c.cut(&buf, out)
		}
	}

	s := buf.text.String()
	if strings.TrimSpace(s[min(buf.fresh, len(s)):]) != "" {
		if ch, ok := c.emit(&buf, s, len(s), len(out)); ok {
			out = append(out, ch)
		}
	}
	return out
}

// cut emits one chunk from the head of the buffer and keeps the overlap.
func (c *Chunker) cut(buf *buffer, out []entity.Chunk) []entity.Chunk {
	s := buf.text.String()
	end := boundary(s, tokensToChars(c.cfg.TargetTokens))
	if ch, ok := c.emit(buf, s, end, len(out)); ok {
		out = append(out, ch)
	}

	keep := overlapStart(s, end, tokensToChars(c.cfg.OverlapTokens))
	rest := s[keep:]
	buf.text.Reset()
	buf.text.WriteString(rest)
	buf.pages = rebase(buf.pages, keep)
	buf.sections = rebase(buf.sections, keep)
	buf.fresh = end - keep
	return out
}

func (c *Chunker) emit(buf *buffer, s string, end, index int) (entity.Chunk, bool) {
	raw := s[:end]
	first := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	text := strings.TrimSpace(raw)
	if text == "" {
		return entity.Chunk{}, false
	}
	last := first + len(text) - 1
	return entity.Chunk{
		Index:           index,
		Text:            text,
		PageStart:       valueAt(buf.pages, first, 0),
		PageEnd:         valueAt(buf.pages, last, 0),
		EstimatedTokens: EstimateTokens(text),
		SectionType:     valueAt(buf.sections, first, constants.SectionNone),
	}, true
}

// boundary picks the cut offset at or before limit: a paragraph break, then a
// sentence end, then whitespace. Paragraph and sentence breaks must leave the
// chunk at least half full; otherwise the next kind is tried. With no
// whitespace at all the cut backs off to a rune boundary.
func boundary(s string, limit int) int {
	if limit >= len(s) {
		return len(s)
	}
	window := s[:limit]
	floor := limit / 2

	if i := strings.LastIndex(window, "\n\n"); i >= floor {
		return i + 2
	}
	if i := lastSentenceEnd(window); i >= floor {
		return i
	}
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i > 0 {
		return i + 1
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return cut
}

// lastSentenceEnd returns the offset just past the last ". ", "? ", "! " (or
// the same followed by a newline) in s, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 2; i >= 0; i-- {
		switch s[i] {
		case '.', '?', '!':
			if s[i+1] == ' ' || s[i+1] == '\n' {
				return i + 2
			}
		}
	}
	return -1
}

// overlapStart returns where the next chunk begins so that it repeats about
// overlap chars of the previous one, snapped forward to a word start.
func overlapStart(s string, end, overlap int) int {
	if overlap <= 0 {
		return end
	}
	start := end - overlap
	if start <= 0 {
		return end
	}
	if !unicode.IsSpace(rune(s[start-1])) {
		i := strings.IndexFunc(s[start:end], unicode.IsSpace)
		if i < 0 {
			return end
		}
		start += i + 1
	}
	if start >= end {
		return end
	}
	return start
}
