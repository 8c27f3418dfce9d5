package chunker

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joseph-ayodele/policy-structurer/constants"
)

func prose(words int, seed int64) string {
	vocab := []string{"insured", "policy", "coverage", "limit", "aggregate", "occurrence", "damages",
		"bodily", "injury", "property", "the", "and", "of", "shall", "pay", "any", "sums"}
	r := rand.New(rand.NewSource(seed))
	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			switch {
			case i%97 == 0:
				b.WriteString(".\n\n")
			case i%13 == 0:
				b.WriteString(". ")
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString(vocab[r.Intn(len(vocab))])
	}
	b.WriteByte('.')
	return b.String()
}

func TestChunkTokenBoundAndOrdering(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{TargetTokens: 50, MaxTokens: 80, OverlapTokens: 10},
		{TargetTokens: 200, MaxTokens: 200, OverlapTokens: 0},
		{TargetTokens: 30, MaxTokens: 40, OverlapTokens: 25},
	}
	pages := map[int]string{}
	for p := 1; p <= 6; p++ {
		pages[p] = prose(300+p*150, int64(p))
	}

	for _, cfg := range configs {
		t.Run(fmt.Sprintf("%d-%d-%d", cfg.TargetTokens, cfg.MaxTokens, cfg.OverlapTokens), func(t *testing.T) {
			c := New(cfg)
			chunks := c.Chunk(pages)
			if len(chunks) < 2 {
				t.Fatalf("expected several chunks, got %d", len(chunks))
			}
			bound := float64(c.Config().MaxTokens) * 1.1
			for i, ch := range chunks {
				if ch.Index != i {
					t.Fatalf("chunk %d has index %d", i, ch.Index)
				}
				if float64(ch.EstimatedTokens) > bound {
					t.Errorf("chunk %d: %d tokens > %.0f", i, ch.EstimatedTokens, bound)
				}
				if ch.EstimatedTokens != EstimateTokens(ch.Text) {
					t.Errorf("chunk %d: token estimate out of sync", i)
				}
				if ch.PageStart < 1 || ch.PageStart > ch.PageEnd {
					t.Errorf("chunk %d: pages %d..%d", i, ch.PageStart, ch.PageEnd)
				}
				if i > 0 && chunks[i-1].PageStart > ch.PageStart {
					t.Errorf("chunk %d starts before its predecessor", i)
				}
				if strings.TrimSpace(ch.Text) != ch.Text || ch.Text == "" {
					t.Errorf("chunk %d text not trimmed", i)
				}
			}
			if chunks[len(chunks)-1].PageEnd != 6 {
				t.Errorf("last chunk ends on page %d", chunks[len(chunks)-1].PageEnd)
			}
		})
	}
}

func TestChunkOverlap(t *testing.T) {
	c := New(Config{TargetTokens: 40, MaxTokens: 60, OverlapTokens: 10})
	chunks := c.Chunk(map[int]string{1: prose(400, 7)})
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		head := strings.Fields(chunks[i].Text)[0]
		tail := prev[len(prev)-min(len(prev), 48):]
		if !strings.Contains(tail, head) {
			t.Errorf("chunk %d does not start inside the tail of chunk %d: %q vs %q", i, i-1, head, tail)
		}
	}
}

func TestChunkWithoutWhitespaceKeepsRunes(t *testing.T) {
	c := New(Config{TargetTokens: 10, MaxTokens: 20, OverlapTokens: 0})
	page := strings.Repeat("€", 200)
	chunks := c.Chunk(map[int]string{1: page})
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	var joined strings.Builder
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, ch.Text)
		}
		joined.WriteString(ch.Text)
	}
	if joined.String() != page {
		t.Errorf("chunks do not reassemble the page: %d of %d bytes", joined.Len(), len(page))
	}
}

func TestChunkEmptyAndBlank(t *testing.T) {
	c := New(DefaultConfig())
	if got := c.Chunk(nil); got == nil || len(got) != 0 {
		t.Fatalf("nil input: %v", got)
	}
	if got := c.Chunk(map[int]string{1: "", 2: "   \n\t\n"}); len(got) != 0 {
		t.Fatalf("blank pages produced %d chunks", len(got))
	}

	got := c.Chunk(map[int]string{1: "  \n", 2: "Policy Number: GL-1", 3: "\n\n"})
	if len(got) != 1 {
		t.Fatalf("got %d chunks", len(got))
	}
	if got[0].PageStart != 2 || got[0].PageEnd != 2 {
		t.Errorf("pages = %d..%d, want 2..2", got[0].PageStart, got[0].PageEnd)
	}
}

func TestChunkSections(t *testing.T) {
	c := New(Config{TargetTokens: 60, MaxTokens: 90, OverlapTokens: 0})
	pages := map[int]string{
		1: "COMMERCIAL GENERAL LIABILITY DECLARATIONS\nPolicy Number: GL-2024-TEST-001\n" + prose(60, 1),
		2: "SECTION I - COVERAGES\nCOVERAGE A INSURING AGREEMENT\n" + prose(120, 2),
		3: "COMMON POLICY CONDITIONS\n" + prose(60, 3),
	}
	chunks := c.Chunk(pages)
	if chunks[0].SectionType != constants.SectionDeclarations {
		t.Errorf("first chunk section = %q", chunks[0].SectionType)
	}
	last := chunks[len(chunks)-1]
	if last.SectionType != constants.SectionConditions {
		t.Errorf("last chunk section = %q", last.SectionType)
	}
	seenForm := false
	for _, ch := range chunks {
		if ch.SectionType == constants.SectionCoverageForm {
			seenForm = true
			if ch.PageStart < 2 {
				t.Errorf("coverage form chunk starts on page %d", ch.PageStart)
			}
		}
	}
	if !seenForm {
		t.Error("no coverage_form chunk")
	}
}

func TestDetectSection(t *testing.T) {
	tests := []struct {
		line string
		want constants.SectionType
		ok   bool
	}{
		{"COMMERCIAL GENERAL LIABILITY DECLARATIONS", constants.SectionDeclarations, true},
		{"  ENDORSEMENT NO. 3  ", constants.SectionEndorsements, true},
		{"SECTION IV - COMMERCIAL GENERAL LIABILITY CONDITIONS", constants.SectionConditions, true},
		{"Declarations", constants.SectionNone, false},
		{"The declarations page lists the limits.", constants.SectionNone, false},
		{"$1,000,000", constants.SectionNone, false},
		{"POLICY NUMBER", constants.SectionNone, false},
	}
	for _, tt := range tests {
		got, ok := DetectSection(tt.line)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectSection(%q) = %q, %v", tt.line, got, tt.ok)
		}
	}
}
