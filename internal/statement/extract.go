package statement

import (
	"bytes"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"rsc.io/pdf"
)

const sourceName = "statement"

// ExtractRuns reads every page of an in-memory PDF and returns its text
// runs, one slice per page. Pages without text yield empty slices.
func ExtractRuns(data []byte) (pages [][]TextRun, err error) {
	// rsc.io/pdf panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &domain.StructuralError{Source: sourceName, Reason: fmt.Sprintf("unreadable PDF content: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &domain.StructuralError{Source: sourceName, Reason: fmt.Sprintf("not a readable PDF: %v", err)}
	}

	n := r.NumPage()
	pages = make([][]TextRun, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, pageRuns(p, i))
	}
	return pages, nil
}

// matrix is a PDF transformation matrix in row-vector form.
type matrix [3][3]float64

var ident = matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (x matrix) mul(y matrix) matrix {
	var z matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				z[i][j] += x[i][k] * y[k][j]
			}
		}
	}
	return z
}

func translate(tx, ty float64) matrix {
	return matrix{{1, 0, 0}, {0, 1, 0}, {tx, ty, 1}}
}

type graphicsState struct {
	ctm     matrix
	tc, tw  float64 // character and word spacing
	th      float64 // horizontal scale
	tl      float64 // leading
	trise   float64
	tfs     float64
	font    pdf.Font
	hasFont bool
}

// textInterpreter walks a page content stream and emits one run per
// visible glyph. It follows the text operators rsc.io/pdf's Content does,
// except that a glyph with no width in the font falls back to Helvetica
// metrics, so positions and word gaps survive fonts without /Widths.
type textInterpreter struct {
	page  pdf.Page
	num   int
	gs    graphicsState
	saved []graphicsState
	tm    matrix
	tlm   matrix
	runs  []TextRun
}

func pageRuns(p pdf.Page, num int) []TextRun {
	ti := &textInterpreter{
		page: p,
		num:  num,
		gs:   graphicsState{ctm: ident, th: 1},
		tm:   ident,
		tlm:  ident,
	}
	contents := p.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Null:
		return nil
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), ti.do)
		}
	default:
		pdf.Interpret(contents, ti.do)
	}
	return ti.runs
}

func (ti *textInterpreter) do(stk *pdf.Stack, op string) {
	n := stk.Len()
	args := make([]pdf.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}
	num := func(i int) float64 { return args[i].Float64() }

	switch op {
	case "q":
		ti.saved = append(ti.saved, ti.gs)
	case "Q":
		if k := len(ti.saved); k > 0 {
			ti.gs = ti.saved[k-1]
			ti.saved = ti.saved[:k-1]
		}
	case "cm":
		if n == 6 {
			m := matrix{{num(0), num(1), 0}, {num(2), num(3), 0}, {num(4), num(5), 1}}
			ti.gs.ctm = m.mul(ti.gs.ctm)
		}
	case "BT":
		ti.tm, ti.tlm = ident, ident
	case "Tc":
		if n == 1 {
			ti.gs.tc = num(0)
		}
	case "Tw":
		if n == 1 {
			ti.gs.tw = num(0)
		}
	case "Tz":
		if n == 1 {
			ti.gs.th = num(0) / 100
		}
	case "TL":
		if n == 1 {
			ti.gs.tl = num(0)
		}
	case "Ts":
		if n == 1 {
			ti.gs.trise = num(0)
		}
	case "Tf":
		if n == 2 {
			ti.gs.font = ti.page.Font(args[0].Name())
			ti.gs.hasFont = true
			ti.gs.tfs = num(1)
		}
	case "Td":
		if n == 2 {
			ti.moveLine(num(0), num(1))
		}
	case "TD":
		if n == 2 {
			ti.gs.tl = -num(1)
			ti.moveLine(num(0), num(1))
		}
	case "Tm":
		if n == 6 {
			ti.tm = matrix{{num(0), num(1), 0}, {num(2), num(3), 0}, {num(4), num(5), 1}}
			ti.tlm = ti.tm
		}
	case "T*":
		ti.moveLine(0, -ti.gs.tl)
	case "Tj":
		if n == 1 {
			ti.show(args[0].RawString())
		}
	case "'":
		if n == 1 {
			ti.moveLine(0, -ti.gs.tl)
			ti.show(args[0].RawString())
		}
	case "\"":
		if n == 3 {
			ti.gs.tw, ti.gs.tc = num(0), num(1)
			ti.moveLine(0, -ti.gs.tl)
			ti.show(args[2].RawString())
		}
	case "TJ":
		if n != 1 {
			return
		}
		arr := args[0]
		for i := 0; i < arr.Len(); i++ {
			v := arr.Index(i)
			if v.Kind() == pdf.String {
				ti.show(v.RawString())
				continue
			}
			tx := -v.Float64() / 1000 * ti.gs.tfs * ti.gs.th
			ti.tm = translate(tx, 0).mul(ti.tm)
		}
	}
}

func (ti *textInterpreter) moveLine(tx, ty float64) {
	ti.tlm = translate(tx, ty).mul(ti.tlm)
	ti.tm = ti.tlm
}

// show emits runs for a single-byte encoded string and advances the text
// matrix past it.
func (ti *textInterpreter) show(s string) {
	g := &ti.gs
	var enc pdf.TextEncoding
	if g.hasFont {
		enc = g.font.Encoder()
	}
	for i := 0; i < len(s); i++ {
		code := s[i]
		ch := string(rune(code))
		if enc != nil {
			ch = enc.Decode(s[i : i+1])
		}
		w0 := ti.glyphWidth(code)

		trm := matrix{{g.tfs * g.th, 0, 0}, {0, g.tfs, 0}, {0, g.trise, 1}}.mul(ti.tm).mul(g.ctm)
		if ch != " " && ch != "" {
			ti.runs = append(ti.runs, TextRun{
				Page:     ti.num,
				X:        trm[2][0],
				Y:        trm[2][1],
				Width:    w0 / 1000 * trm[0][0],
				FontSize: trm[0][0],
				Text:     ch,
			})
		}

		tx := w0/1000*g.tfs + g.tc
		if code == ' ' {
			tx += g.tw
		}
		ti.tm = translate(tx*g.th, 0).mul(ti.tm)
	}
}

func (ti *textInterpreter) glyphWidth(code byte) float64 {
	if ti.gs.hasFont {
		if w := ti.gs.font.Width(int(code)); w > 0 {
			return w
		}
	}
	return helveticaWidth(code)
}

// helveticaWidths are the standard Helvetica advances, in 1/1000 em, for
// codes 32 through 126.
var helveticaWidths = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278, // space to /
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, // 0-9
	278, 278, 584, 584, 584, 556, 1015, // : to @
	667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, // A-M
	722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, // N-Z
	278, 278, 278, 469, 556, 333, // [ to `
	556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, // a-m
	556, 556, 556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, // n-z
	334, 260, 334, 584, // { to ~
}

func helveticaWidth(code byte) float64 {
	if code >= 32 && code <= 126 {
		return helveticaWidths[code-32]
	}
	return 556
}
