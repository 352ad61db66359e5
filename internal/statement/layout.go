package statement

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultLineTolerance is the vertical distance, in layout units, within
// which text runs are treated as sitting on the same line.
const DefaultLineTolerance = 2.0

// TextRun is one positioned piece of text from a PDF page. Coordinates use
// the PDF convention: Y grows upwards.
type TextRun struct {
	Page     int
	X        float64
	Y        float64
	Width    float64 // 0 when unknown
	FontSize float64
	Text     string
}

// RawLine is a reconstructed visual line of text.
type RawLine struct {
	Page int
	Y    float64
	Text string
}

// ReconstructLines rebuilds visual lines from unordered runs. Each page is
// read top to bottom; runs join the current line while they stay within
// tolerance of the line's first run, and are then read left to right.
func ReconstructLines(pages [][]TextRun, tolerance float64) []RawLine {
	if tolerance <= 0 {
		tolerance = DefaultLineTolerance
	}
	var lines []RawLine
	for _, runs := range pages {
		lines = append(lines, pageLines(runs, tolerance)...)
	}
	return lines
}

func pageLines(runs []TextRun, tolerance float64) []RawLine {
	if len(runs) == 0 {
		return nil
	}
	sorted := make([]TextRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines []RawLine
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && math.Abs(sorted[i].Y-sorted[start].Y) < tolerance {
			continue
		}
		if text := joinRuns(sorted[start:i]); text != "" {
			lines = append(lines, RawLine{
				Page: sorted[start].Page,
				Y:    sorted[start].Y,
				Text: text,
			})
		}
		start = i
	}
	return lines
}

func joinRuns(runs []TextRun) string {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	for i, r := range runs {
		if i > 0 && needsSpace(runs[i-1], r) {
			b.WriteByte(' ')
		}
		b.WriteString(r.Text)
	}
	return strings.TrimSpace(b.String())
}

// needsSpace reports whether a visible gap separates prev from next.
func needsSpace(prev, next TextRun) bool {
	if strings.HasSuffix(prev.Text, " ") || strings.HasPrefix(next.Text, " ") {
		return false
	}
	width := prev.Width
	if width <= 0 {
		if prev.FontSize <= 0 {
			return true
		}
		// Half an em per rune.
		width = prev.FontSize * 0.5 * float64(utf8.RuneCountInString(prev.Text))
	}
	gap := next.X - (prev.X + width)
	minGap := 1.0
	if prev.FontSize > 0 {
		minGap = prev.FontSize * 0.2
	}
	return gap > minGap
}
