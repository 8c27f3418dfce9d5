package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

const chunkSeparator = "\n---\n"

// joinChunks renders chunks for a prompt, stopping once budget characters
// are used. The first chunk is always included, truncated if needed.
func joinChunks(chunks []entity.Chunk, budget int) string {
	var b strings.Builder
	for i, ch := range chunks {
		piece := fmt.Sprintf("[pages %d-%d]\n%s", ch.PageStart, ch.PageEnd, ch.Text)
		if i > 0 {
			piece = chunkSeparator + piece
		}
		if budget > 0 && b.Len()+len(piece) > budget {
			if i == 0 {
				cut := budget
				for cut > 0 && !utf8.RuneStart(piece[cut]) {
					cut--
				}
				b.WriteString(piece[:cut])
			}
			break
		}
		b.WriteString(piece)
	}
	return b.String()
}

// declarationChunks prefers chunks labelled as declarations, then chunks
// that start on the first three pages, then the first chunks.
func declarationChunks(chunks []entity.Chunk) []entity.Chunk {
	var decl, early []entity.Chunk
	for _, ch := range chunks {
		if ch.SectionType == constants.SectionDeclarations {
			decl = append(decl, ch)
		}
		if ch.PageStart <= 3 {
			early = append(early, ch)
		}
	}
	switch {
	case len(decl) > 0:
		return decl
	case len(early) > 0:
		return early
	default:
		return chunks[:min(3, len(chunks))]
	}
}

// relevantChunks keeps declaration chunks and chunks that mention any of the
// terms. With no match it returns every chunk; the budget trims later.
func relevantChunks(chunks []entity.Chunk, terms []string) []entity.Chunk {
	var out []entity.Chunk
	for _, ch := range chunks {
		if ch.SectionType == constants.SectionDeclarations || mentionsAny(ch.Text, terms) {
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		return chunks
	}
	return out
}

func mentionsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
