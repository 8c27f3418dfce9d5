package llm

import (
	"testing"
	"time"

	"github.com/joseph-ayodele/policy-structurer/constants"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		in   any
		want *float64
	}{
		{1000000.0, ptr(1000000)},
		{"$1,000,000", ptr(1000000)},
		{" 12500.50 ", ptr(12500.5)},
		{"-250", ptr(-250)},
		{"n/a", nil},
		{"", nil},
		{true, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got := Float(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("Float(%v) = %v, want nil", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("Float(%v) = %v, want %v", tt.in, got, *tt.want)
		}
	}
}

func TestBoolRejectsStrings(t *testing.T) {
	if b := Bool(true); b == nil || !*b {
		t.Error("JSON true must coerce")
	}
	if b := Bool("true"); b != nil {
		t.Error(`string "true" must not coerce`)
	}
	if b := Bool(1.0); b != nil {
		t.Error("number must not coerce")
	}
}

func TestDate(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-01-01", "01/01/2024", "1/1/2024", "January 1, 2024", "Jan 1, 2024"} {
		got := Date(in)
		if got == nil || !got.Equal(want) {
			t.Errorf("Date(%q) = %v", in, got)
		}
	}
	if Date("sometime next year") != nil {
		t.Error("free text must not parse")
	}
}

func TestConfidence(t *testing.T) {
	if c := Confidence(map[string]any{}, "confidence"); c != constants.DefaultModelConfidence {
		t.Errorf("missing = %v", c)
	}
	if c := Confidence(map[string]any{"confidence": 0.9}, "confidence"); c != 0.9 {
		t.Errorf("0.9 = %v", c)
	}
	if c := Confidence(map[string]any{"confidence": 85.0}, "confidence"); c != 0.85 {
		t.Errorf("percent = %v", c)
	}
	if c := Confidence(map[string]any{"confidence": 0.0}, "confidence"); c != 0 {
		t.Errorf("zero = %v", c)
	}
}

func TestStringKeepsNumericIdentifiers(t *testing.T) {
	if s := String(23787.0); s == nil || *s != "23787" {
		t.Errorf("String(23787) = %v", s)
	}
	if s := String("  "); s != nil {
		t.Error("blank must be nil")
	}
}

func ptr(f float64) *float64 { return &f }
