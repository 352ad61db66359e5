package statement

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	helveticaNoWidths = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

	statementContent = "BT\n/F1 10 Tf\n50 700 Td\n(" + header + ") Tj\n" +
		"0 -14 Td\n(27 Jun 2025 POSC28JUN DECATHLON B 8.00) Tj\nET"

	kernedContent = "BT\n/F1 10 Tf\n50 700 Td\n(" + header + ") Tj\n" +
		"0 -14 Td\n[(27 Jun 2025) -250 (POSC28JUN DECATHLON B) -3000 (8.00)] TJ\nET"
)

func courierWithWidths() string {
	widths := strings.TrimSpace(strings.Repeat("600 ", 126-32+1))
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>"
}

// onePagePDF assembles a single page document whose /F1 resource is font.
func onePagePDF(font, content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		font,
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestParse_OnePageStatement(t *testing.T) {
	tests := []struct {
		name    string
		font    string
		content string
	}{
		{"font with widths", courierWithWidths(), statementContent},
		{"font without widths", helveticaNoWidths, statementContent},
		{"kerned show array", helveticaNoWidths, kernedContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := onePagePDF(tt.font, tt.content)

			pages, err := ExtractRuns(data)
			require.NoError(t, err)
			require.Len(t, pages, 1)

			got := ReconstructLines(pages, DefaultLineTolerance)
			require.Len(t, got, 2)
			assert.Equal(t, header, got[0].Text)
			assert.Equal(t, "27 Jun 2025 POSC28JUN DECATHLON B 8.00", got[1].Text)

			candidates, err := NewParser(DefaultOptions()).Parse(context.Background(), data)
			require.NoError(t, err)
			require.Len(t, candidates, 1)
			c := candidates[0]
			assert.Equal(t, date(2025, 6, 27), c.Date)
			assert.Equal(t, "POSC28JUN DECATHLON B", c.Description)
			assert.True(t, dec("8.00").Equal(c.Amount))
			assert.Equal(t, domain.TypeExpense, c.Type)
		})
	}
}

func TestExtractRuns_GlyphPositions(t *testing.T) {
	data := onePagePDF(helveticaNoWidths, "BT\n/F1 10 Tf\n50 700 Td\n(AB C) Tj\nET")

	pages, err := ExtractRuns(data)

	require.NoError(t, err)
	require.Len(t, pages, 1)
	runs := pages[0]
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{runs[0].Text, runs[1].Text, runs[2].Text})
	assert.Equal(t, 1, runs[0].Page)
	assert.InDelta(t, 50, runs[0].X, 1e-9)
	assert.InDelta(t, 700, runs[0].Y, 1e-9)
	assert.InDelta(t, 6.67, runs[0].Width, 1e-9)
	assert.InDelta(t, 56.67, runs[1].X, 1e-9)
	// B (6.67) then a space (2.78).
	assert.InDelta(t, 66.12, runs[2].X, 1e-9)
	assert.InDelta(t, 10, runs[2].FontSize, 1e-9)
}

func TestExtractRuns_PageWithoutContents(t *testing.T) {
	// Blank the reference in place so the xref offsets stay valid.
	data := onePagePDF(helveticaNoWidths, "")
	data = bytes.Replace(data, []byte(" /Contents 5 0 R"), []byte("                "), 1)
	require.NotContains(t, string(data), "/Contents")

	pages, err := ExtractRuns(data)

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Empty(t, pages[0])
}

func TestParse_NotAPDF(t *testing.T) {
	_, err := NewParser(DefaultOptions()).Parse(context.Background(), []byte("Date,Description,Amount\n"))

	require.Error(t, err)
	assert.True(t, domain.IsStructural(err))
}
