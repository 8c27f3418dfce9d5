package pdftext

import (
	"math/rand"
	"strings"
	"testing"
)

const prose = "This Commercial General Liability policy provides coverage for bodily injury and property damage " +
	"arising out of the operations of the named insured during the policy period shown in the declarations, " +
	"subject to the limits of insurance and all terms, conditions and exclusions of this coverage part."

func TestScorePageRules(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		min, max float64
	}{
		{"empty", "", 0, 0},
		{"whitespace only", "   \n\t ", 0, 0},
		{"short", "Hello", 0, 30},
		{"garbage", strings.Repeat("■▲◆ word ", 30), 10, 50},
		{"mostly whitespace", strings.Repeat(" ", 950) + strings.Repeat("a", 50), 0, 20},
		{"few words", strings.Repeat("insurance ", 11), 0, 50},
		{"numbers", strings.Repeat("1,000,000 ", 25), 40, 60},
		{"prose", prose, 85, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScorePage(tt.text)
			if got < tt.min || got > tt.max {
				t.Errorf("ScorePage = %.2f, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestScorePageBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		b := make([]byte, rng.Intn(600))
		rng.Read(b)
		if s := ScorePage(string(b)); s < 0 || s > 100 {
			t.Fatalf("score %v out of bounds for %q", s, b)
		}
	}
}

func TestScoreDocumentMean(t *testing.T) {
	got := ScoreDocument(map[int]float64{1: 90, 2: 10, 3: 50})
	if got != 50 {
		t.Errorf("mean = %v, want 50", got)
	}
	if ScoreDocument(nil) != 0 {
		t.Error("empty document must score 0")
	}
}
