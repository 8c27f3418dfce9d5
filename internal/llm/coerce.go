package llm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/policy-structurer/constants"
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	time.RFC3339,
}

var moneyNoise = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "", "usd", "")

// Float reads a JSON number or a numeric string such as "$1,000,000".
func Float(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case int:
		f = float64(t)
	case string:
		s := moneyNoise.Replace(strings.TrimSpace(t))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Bool accepts only JSON booleans; the string "true" is not a boolean.
func Bool(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// String returns trimmed text, or nil when empty. Numbers are rendered
// without exponent so identifiers like NAIC codes survive.
func String(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return nil
	}
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// Date parses ISO, US numeric and long-form dates into UTC midnight.
func Date(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// Confidence reads m[key] as a 0..1 score. Percentages are scaled down and
// a missing or unusable value yields the default model confidence.
func Confidence(m map[string]any, key string) float64 {
	p := Float(m[key])
	if p == nil || *p < 0 {
		return constants.DefaultModelConfidence
	}
	c := *p
	if c > 1 && c <= 100 {
		c /= 100
	}
	return math.Min(c, 1)
}

// Strings collects the string members of a JSON array.
func Strings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := String(item); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// Object returns v as a JSON object, or nil.
func Object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
