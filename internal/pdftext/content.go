package pdftext

import (
	"bytes"
	"fmt"
	"strconv"
)

type operandKind int

const (
	kindNumber operandKind = iota
	kindString
	kindName
	kindArray
	kindOther
)

// operand is one argument preceding a content stream operator.
type operand struct {
	kind  operandKind
	num   float64
	str   []byte
	items []operand
}

type operation struct {
	op   string
	args []operand
}

// lexer tokenizes a decoded page content stream.
type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skip() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhite(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// parseContent splits a content stream into operations. Inline images
// (BI ... ID <binary> EI) are skipped.
func parseContent(data []byte) ([]operation, error) {
	l := &lexer{data: data}
	var ops []operation
	var args []operand
	for {
		l.skip()
		if l.pos >= len(l.data) {
			break
		}
		c := l.data[l.pos]
		switch {
		case c == '[':
			l.pos++
			arr, err := l.readArray()
			if err != nil {
				return nil, err
			}
			args = append(args, arr)
		case c == ']':
			return nil, fmt.Errorf("unbalanced ']' at offset %d", l.pos)
		default:
			tok, isOp, err := l.readToken()
			if err != nil {
				return nil, err
			}
			if !isOp {
				args = append(args, tok)
				continue
			}
			op := string(tok.str)
			if op == "BI" {
				if err := l.skipInlineImage(); err != nil {
					return nil, err
				}
				args = nil
				continue
			}
			ops = append(ops, operation{op: op, args: args})
			args = nil
		}
	}
	return ops, nil
}

func (l *lexer) readArray() (operand, error) {
	arr := operand{kind: kindArray}
	for {
		l.skip()
		if l.pos >= len(l.data) {
			return arr, fmt.Errorf("unterminated array")
		}
		switch l.data[l.pos] {
		case ']':
			l.pos++
			return arr, nil
		case '[':
			l.pos++
			inner, err := l.readArray()
			if err != nil {
				return arr, err
			}
			arr.items = append(arr.items, inner)
		default:
			tok, isOp, err := l.readToken()
			if err != nil {
				return arr, err
			}
			if isOp {
				// Bare keywords inside arrays (true/false/null) carry no text.
				continue
			}
			arr.items = append(arr.items, tok)
		}
	}
}

// readToken reads one non-array token. isOp reports a bare keyword.
func (l *lexer) readToken() (operand, bool, error) {
	c := l.data[l.pos]
	switch {
	case c == '(':
		l.pos++
		s, err := l.readLiteral()
		return operand{kind: kindString, str: s}, false, err
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return operand{kind: kindOther}, false, l.skipDict()
		}
		l.pos++
		s, err := l.readHex()
		return operand{kind: kindString, str: s}, false, err
	case c == '/':
		l.pos++
		start := l.pos
		for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
			l.pos++
		}
		return operand{kind: kindName, str: l.data[start:l.pos]}, false, nil
	case c == '>' || c == ')' || c == '{' || c == '}':
		l.pos++
		return operand{kind: kindOther}, false, nil
	}

	start := l.pos
	for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	word := l.data[start:l.pos]
	if len(word) == 0 {
		l.pos++
		return operand{kind: kindOther}, false, nil
	}
	if n, err := strconv.ParseFloat(string(word), 64); err == nil {
		return operand{kind: kindNumber, num: n}, false, nil
	}
	switch string(word) {
	case "true", "false", "null":
		return operand{kind: kindOther}, false, nil
	}
	return operand{kind: kindOther, str: word}, true, nil
}

func (l *lexer) readLiteral() ([]byte, error) {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out, fmt.Errorf("dangling escape")
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data); k++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out, fmt.Errorf("unterminated string")
}

func (l *lexer) readHex() ([]byte, error) {
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("bad hex string: %w", err)
				}
				out[i] = byte(v)
			}
			return out, nil
		}
		if isWhite(c) {
			continue
		}
		digits = append(digits, c)
	}
	return nil, fmt.Errorf("unterminated hex string")
}

func (l *lexer) skipDict() error {
	depth := 1
	for l.pos < len(l.data) {
		switch {
		case bytes.HasPrefix(l.data[l.pos:], []byte("<<")):
			depth++
			l.pos += 2
		case bytes.HasPrefix(l.data[l.pos:], []byte(">>")):
			depth--
			l.pos += 2
			if depth == 0 {
				return nil
			}
		case l.data[l.pos] == '(':
			l.pos++
			if _, err := l.readLiteral(); err != nil {
				return err
			}
		default:
			l.pos++
		}
	}
	return fmt.Errorf("unterminated dictionary")
}

func (l *lexer) skipInlineImage() error {
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		return fmt.Errorf("inline image without ID")
	}
	l.pos += idx + 2
	for l.pos < len(l.data) {
		idx = bytes.Index(l.data[l.pos:], []byte("EI"))
		if idx < 0 {
			return fmt.Errorf("inline image without EI")
		}
		end := l.pos + idx
		l.pos = end + 2
		before := end == 0 || isWhite(l.data[end-1])
		after := l.pos >= len(l.data) || isWhite(l.data[l.pos])
		if before && after {
			return nil
		}
	}
	return fmt.Errorf("inline image without EI")
}
