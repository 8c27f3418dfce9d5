package pdftext

import (
	"strings"
	"testing"
)

func TestLayoutText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "top to bottom",
			content: "BT /F1 12 Tf 72 700 Td (second line) Tj ET\n" +
				"BT /F1 12 Tf 72 720 Td (first line) Tj ET",
			want: "first line\nsecond line",
		},
		{
			name: "same bucket left to right",
			content: "BT /F1 12 Tf 300 500 Td (Right) Tj ET\n" +
				"BT /F1 12 Tf 72 501 Td (Left) Tj ET",
			want: "Left Right",
		},
		{
			name:    "kerned TJ",
			content: "BT /F1 10 Tf 50 600 Td [(Pol) -20 (icy) -300 (Number)] TJ ET",
			want:    "Policy Number",
		},
		{
			name:    "text matrix scaling",
			content: "BT 12 0 0 12 72 720 Tm /F1 1 Tf (Scaled text) Tj ET",
			want:    "Scaled text",
		},
		{
			name:    "leading and T*",
			content: "BT /F1 12 Tf 14 TL 72 720 Td (A line) Tj T* (B line) Tj ET",
			want:    "A line\nB line",
		},
		{
			name:    "escapes and hex",
			content: `BT /F1 12 Tf 72 720 Td (Limit \(each\)) Tj 0 -20 Td <48656C6C6F> Tj ET`,
			want:    "Limit (each)\nHello",
		},
		{
			name:    "inline image skipped",
			content: "q BI /W 1 /H 1 ID \x00\xff EI Q BT /F1 12 Tf 72 720 Td (After image) Tj ET",
			want:    "After image",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LayoutText([]byte(tt.content))
			if err != nil {
				t.Fatalf("LayoutText: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLayoutTextMalformedFallsBack(t *testing.T) {
	content := []byte("BT\n/F1 12 Tf\n72 720 Td\n[(Hello) -250 (World) TJ\nET")
	if _, err := LayoutText(content); err == nil {
		t.Fatal("expected tokenizer error for unterminated array")
	}
	got := plainText(content)
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Errorf("fallback text = %q", got)
	}
}
