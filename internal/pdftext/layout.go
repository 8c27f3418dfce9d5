package pdftext

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// lineBucket is the vertical distance, in user space units, within which
// words are treated as one line.
const lineBucket = 5.0

type matrix [6]float64

func identity() matrix { return matrix{1, 0, 0, 1, 0, 0} }

func (a matrix) mult(b matrix) matrix {
	return matrix{
		a[0]*b[0] + a[1]*b[2],
		a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2],
		a[2]*b[1] + a[3]*b[3],
		a[4]*b[0] + a[5]*b[2] + b[4],
		a[4]*b[1] + a[5]*b[3] + b[5],
	}
}

// word is a run of non-space glyphs placed on the page.
type word struct {
	x, y, endX float64
	size       float64
	text       string
}

type textState struct {
	tm, tlm     matrix
	fontSize    float64
	charSpacing float64
	wordSpacing float64
	scale       float64
	leading     float64
	rise        float64
}

// layoutInterpreter runs text operators and records positioned words.
type layoutInterpreter struct {
	ctm     matrix
	gstack  []matrix
	ts      textState
	words   []word
	current *word
}

func newLayoutInterpreter() *layoutInterpreter {
	return &layoutInterpreter{
		ctm: identity(),
		ts:  textState{tm: identity(), tlm: identity(), scale: 100, fontSize: 1},
	}
}

func num(args []operand, i int) float64 {
	if i < len(args) && args[i].kind == kindNumber {
		return args[i].num
	}
	return 0
}

func toMatrix(args []operand) matrix {
	return matrix{num(args, 0), num(args, 1), num(args, 2), num(args, 3), num(args, 4), num(args, 5)}
}

func (li *layoutInterpreter) run(ops []operation) {
	for _, o := range ops {
		li.apply(o)
	}
	li.flush()
}

func (li *layoutInterpreter) apply(o operation) {
	ts := &li.ts
	switch o.op {
	case "q":
		li.gstack = append(li.gstack, li.ctm)
	case "Q":
		if n := len(li.gstack); n > 0 {
			li.ctm = li.gstack[n-1]
			li.gstack = li.gstack[:n-1]
		}
	case "cm":
		if len(o.args) == 6 {
			li.ctm = toMatrix(o.args).mult(li.ctm)
		}
	case "BT":
		ts.tm, ts.tlm = identity(), identity()
	case "ET":
		li.flush()
	case "Tc":
		ts.charSpacing = num(o.args, 0)
	case "Tw":
		ts.wordSpacing = num(o.args, 0)
	case "Tz":
		ts.scale = num(o.args, 0)
	case "TL":
		ts.leading = num(o.args, 0)
	case "Ts":
		ts.rise = num(o.args, 0)
	case "Tf":
		if len(o.args) >= 2 {
			ts.fontSize = num(o.args, 1)
		}
	case "Td":
		li.moveLine(num(o.args, 0), num(o.args, 1))
	case "TD":
		ts.leading = -num(o.args, 1)
		li.moveLine(num(o.args, 0), num(o.args, 1))
	case "Tm":
		if len(o.args) == 6 {
			ts.tm = toMatrix(o.args)
			ts.tlm = ts.tm
			li.flush()
		}
	case "T*":
		li.moveLine(0, -ts.leading)
	case "Tj":
		if len(o.args) > 0 && o.args[0].kind == kindString {
			li.show(o.args[0].str)
		}
	case "TJ":
		if len(o.args) == 0 || o.args[0].kind != kindArray {
			return
		}
		for _, it := range o.args[0].items {
			switch it.kind {
			case kindNumber:
				shift := -it.num / 1000 * ts.fontSize * (ts.scale / 100)
				// Large negative kerning is how many producers encode a space.
				if it.num < -200 {
					li.flush()
				}
				ts.tm[4] += shift * ts.tm[0]
				ts.tm[5] += shift * ts.tm[1]
			case kindString:
				li.show(it.str)
			}
		}
	case "'":
		li.moveLine(0, -ts.leading)
		if len(o.args) > 0 && o.args[0].kind == kindString {
			li.show(o.args[0].str)
		}
	case "\"":
		ts.wordSpacing = num(o.args, 0)
		ts.charSpacing = num(o.args, 1)
		li.moveLine(0, -ts.leading)
		if len(o.args) > 2 && o.args[2].kind == kindString {
			li.show(o.args[2].str)
		}
	}
}

func (li *layoutInterpreter) moveLine(tx, ty float64) {
	m := matrix{1, 0, 0, 1, tx, ty}
	li.ts.tlm = m.mult(li.ts.tlm)
	li.ts.tm = li.ts.tlm
	li.flush()
}

// effectiveSize is the rendered font size after text and page transforms.
func (li *layoutInterpreter) effectiveSize() float64 {
	m := li.ts.tm.mult(li.ctm)
	s := math.Abs(li.ts.fontSize) * math.Hypot(m[2], m[3])
	if s == 0 {
		s = math.Abs(li.ts.fontSize)
	}
	return s
}

// show places the glyphs of one string, splitting on spaces.
func (li *layoutInterpreter) show(raw []byte) {
	ts := &li.ts
	text := decodeBytes(raw)
	size := li.effectiveSize()
	// Without font metrics every glyph is assumed half an em wide.
	glyphAdvance := 0.5 * ts.fontSize * (ts.scale / 100)
	for _, r := range text {
		m := ts.tm.mult(li.ctm)
		x, y := m[4], m[5]+ts.rise
		advance := glyphAdvance + ts.charSpacing*(ts.scale/100)
		if unicode.IsSpace(r) {
			advance += ts.wordSpacing * (ts.scale / 100)
			li.flush()
		} else if unicode.IsPrint(r) {
			if li.current == nil {
				li.current = &word{x: x, y: y, size: size}
			}
			li.current.text += string(r)
		}
		ts.tm[4] += advance * ts.tm[0]
		ts.tm[5] += advance * ts.tm[1]
		if li.current != nil {
			end := ts.tm.mult(li.ctm)
			li.current.endX = end[4]
		}
	}
}

func (li *layoutInterpreter) flush() {
	if li.current != nil && li.current.text != "" {
		li.words = append(li.words, *li.current)
	}
	li.current = nil
}

// layoutText groups words into lines keyed by the rounded vertical position,
// top of page first, then orders words left to right.
func layoutText(words []word) string {
	if len(words) == 0 {
		return ""
	}
	lines := map[int][]word{}
	for _, w := range words {
		key := int(math.Round(w.y / lineBucket))
		lines[key] = append(lines[key], w)
	}
	keys := make([]int, 0, len(lines))
	for k := range lines {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		ws := lines[k]
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].x < ws[j].x })
		var b strings.Builder
		for i, w := range ws {
			if i > 0 {
				prev := ws[i-1]
				// Fragments that abut the previous word are one word split by kerning.
				if w.x-prev.endX > 0.15*math.Max(w.size, 1) {
					b.WriteByte(' ')
				}
			}
			b.WriteString(w.text)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// decodeBytes maps single-byte codes to runes. Two-byte sequences with a
// zero high byte are folded, which covers Identity-encoded ASCII.
func decodeBytes(raw []byte) string {
	if len(raw) >= 2 && len(raw)%2 == 0 {
		zeros := 0
		for i := 0; i < len(raw); i += 2 {
			if raw[i] == 0 {
				zeros++
			}
		}
		if zeros*2 == len(raw) {
			folded := make([]byte, 0, len(raw)/2)
			for i := 1; i < len(raw); i += 2 {
				folded = append(folded, raw[i])
			}
			raw = folded
		}
	}
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(' ')
		case c < 0x20:
		default:
			b.WriteRune(rune(c))
		}
	}
	return b.String()
}
