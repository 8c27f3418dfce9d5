package pdftext

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	literalRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	hexRe     = regexp.MustCompile(`<([0-9A-Fa-f\s]+)>`)
)

// plainText pulls text runs out of a content stream line by line in operator
// order. It tolerates streams the tokenizer rejects.
func plainText(data []byte) string {
	var sb strings.Builder
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		quoted := bytes.HasSuffix(line, []byte("'")) || bytes.HasSuffix(line, []byte(`"`))
		if quoted {
			newline()
		}
		if quoted || bytes.Contains(line, []byte("Tj")) || bytes.Contains(line, []byte("TJ")) {
			for _, m := range literalRe.FindAllSubmatch(line, -1) {
				l := &lexer{data: append(append([]byte{}, m[1]...), ')')}
				s, err := l.readLiteral()
				if err != nil {
					continue
				}
				sb.WriteString(decodeBytes(s))
			}
			for _, m := range hexRe.FindAllSubmatch(line, -1) {
				l := &lexer{data: append(append([]byte{}, m[1]...), '>')}
				s, err := l.readHex()
				if err != nil {
					continue
				}
				sb.WriteString(decodeBytes(s))
			}
		}
		if bytes.Contains(line, []byte("Td")) || bytes.Contains(line, []byte("TD")) ||
			bytes.Contains(line, []byte("T*")) || bytes.HasSuffix(line, []byte("ET")) {
			newline()
		}
	}
	return strings.TrimSpace(sb.String())
}
