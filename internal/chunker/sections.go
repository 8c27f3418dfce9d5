package chunker

import (
	"strings"
	"unicode"

	"github.com/joseph-ayodele/policy-structurer/constants"
)

const maxHeaderLen = 100

// mark pins a value to a byte offset of the rolling buffer; the value holds
// from that offset until the next mark.
type mark[T any] struct {
	offset int
	value  T
}

// DetectSection reports the section a line opens. Only header-like lines
// qualify: short, containing letters, and written entirely in capitals.
func DetectSection(line string) (constants.SectionType, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 3 || len(line) > maxHeaderLen {
		return constants.SectionNone, false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return constants.SectionNone, false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter {
		return constants.SectionNone, false
	}
	for _, v := range constants.SectionVocabulary {
		if strings.Contains(line, v.Keyword) {
			return v.Section, true
		}
	}
	return constants.SectionNone, false
}

// headerMarks returns the section headers in text, offsets relative to text.
func headerMarks(text string) []mark[constants.SectionType] {
	var out []mark[constants.SectionType]
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if section, ok := DetectSection(line); ok {
			lead := len(line) - len(strings.TrimLeft(line, " \t"))
			out = append(out, mark[constants.SectionType]{offset: offset + lead, value: section})
		}
		offset += len(line)
	}
	return out
}

// valueAt returns the value of the last mark at or before pos.
func valueAt[T any](marks []mark[T], pos int, zero T) T {
	v := zero
	for _, m := range marks {
		if m.offset > pos {
			break
		}
		v = m.value
	}
	return v
}

// rebase drops everything before cut, keeping the value in force at cut as a
// mark at offset 0.
func rebase[T any](marks []mark[T], cut int) []mark[T] {
	out := make([]mark[T], 0, len(marks))
	var carried *mark[T]
	for i := range marks {
		m := marks[i]
		if m.offset <= cut {
			carried = &mark[T]{offset: 0, value: m.value}
			continue
		}
		m.offset -= cut
		out = append(out, m)
	}
	if carried != nil {
		out = append([]mark[T]{*carried}, out...)
	}
	return out
}
