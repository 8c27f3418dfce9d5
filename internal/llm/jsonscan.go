package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrNoJSON      = errors.New("llm: no JSON object in response")
	ErrInvalidJSON = errors.New("llm: JSON object does not decode")
)

// ScanResult is the outcome of scanning model output for a JSON object.
// Exactly one of Object or Err is set.
type ScanResult struct {
	Object map[string]any
	Raw    string
	Err    error
}

func (r ScanResult) OK() bool { return r.Err == nil }

// ScanJSON locates the first JSON object in free text. A ```json fence wins,
// then any fenced block, then the first balanced {...} region. Braces inside
// quoted strings do not count toward nesting. A region that balances but does
// not decode is skipped; an unterminated one stops the scan of that candidate.
func ScanJSON(text string) ScanResult {
	if strings.TrimSpace(text) == "" {
		return ScanResult{Err: ErrNoJSON}
	}
	var candidates []string
	if body, ok := fenced(text, "```json"); ok {
		candidates = append(candidates, body)
	}
	if body, ok := fenced(text, "```"); ok {
		candidates = append(candidates, body)
	}
	candidates = append(candidates, text)

	var lastErr error = ErrNoJSON
	for _, c := range candidates {
		for from := 0; from < len(c); {
			obj, end, ok := balancedObject(c, from)
			if !ok {
				break
			}
			var m map[string]any
			err := json.Unmarshal([]byte(obj), &m)
			if err == nil {
				return ScanResult{Object: m, Raw: obj}
			}
			lastErr = errors.Join(ErrInvalidJSON, err)
			from = end
		}
	}
	return ScanResult{Err: lastErr}
}

func fenced(text, open string) (string, bool) {
	lower := strings.ToLower(text)
	start := strings.Index(lower, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	// skip the info string of a bare fence
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && open == "```" {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// balancedObject returns the first {...} span at or after from and the
// offset just past it. An opening brace that never closes ends the search:
// truncated output must not yield one of its nested objects.
func balancedObject(s string, from int) (string, int, bool) {
	start := strings.IndexByte(s[from:], '{')
	if start < 0 {
		return "", 0, false
	}
	start += from
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], i + 1, true
			}
		}
	}
	return "", 0, false
}
