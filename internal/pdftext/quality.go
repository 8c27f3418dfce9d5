package pdftext

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minCharacters       = 100
	maxGarbageRatio     = 0.15
	maxWhitespaceRatio  = 0.90
	minWords            = 20
	minLetterRatio      = 0.40
	lowLetterScoreFloor = 40.0
)

// garbage whitelist: symbols common on declarations pages.
var allowedSymbols = map[rune]bool{
	'$': true, '%': true, '#': true, '@': true, '&': true, '*': true, '/': true, '\\': true,
}

type charStats struct {
	total, letters, whitespace, garbage int
}

func countChars(text string) charStats {
	var s charStats
	for _, r := range text {
		s.total++
		switch {
		case unicode.IsLetter(r):
			s.letters++
		case unicode.IsSpace(r):
			s.whitespace++
		case unicode.IsDigit(r), unicode.IsPunct(r), allowedSymbols[r]:
		default:
			s.garbage++
		}
	}
	return s
}

// ScorePage rates how usable a page's extracted text is, 0 to 100.
// Rules are applied in priority order; the first that matches decides.
func ScorePage(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := utf8.RuneCountInString(text)
	if n < minCharacters {
		return clamp(30 * float64(n) / minCharacters)
	}

	stats := countChars(text)
	total := float64(stats.total)

	garbageRatio := float64(stats.garbage) / total
	if garbageRatio > maxGarbageRatio {
		return clamp(10 + 40*(1-garbageRatio))
	}

	whitespaceRatio := float64(stats.whitespace) / total
	if whitespaceRatio > maxWhitespaceRatio {
		return clamp(math.Min(20, 200*(1-whitespaceRatio)))
	}

	words := len(strings.Fields(text))
	if words < minWords {
		return clamp(50 * float64(words) / minWords)
	}

	letterRatio := float64(stats.letters) / total
	if letterRatio < minLetterRatio {
		return clamp(math.Max(lowLetterScoreFloor, 100*letterRatio*1.5))
	}
	return clamp(70 + 30*letterRatio)
}

// ScoreDocument is the arithmetic mean of the page scores.
func ScoreDocument(scores map[int]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return clamp(sum / float64(len(scores)))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
