package csvimport

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const sourceName = "csv"

// Canonical column names.
const (
	ColDate        = "Date"
	ColYear        = "Year"
	ColMonth       = "Month"
	ColDescription = "Description"
	ColIncome      = "Income Amount"
	ColSpending    = "Spending Amount"
	ColCapex       = "Capex Amount"
	ColCategory    = "Category"
	ColSource      = "Source"
	ColType        = "Transaction Type"
	ColCurrency    = "Currency"
	ColNonEUR      = "Non-EUR Spending"
)

// headerAliases maps lowercased header text to its canonical column.
var headerAliases = map[string]string{
	"date":             ColDate,
	"year":             ColYear,
	"month":            ColMonth,
	"description":      ColDescription,
	"income amount":    ColIncome,
	"income":           ColIncome,
	"spending amount":  ColSpending,
	"spending":         ColSpending,
	"capex amount":     ColCapex,
	"capex":            ColCapex,
	"category":         ColCategory,
	"source":           ColSource,
	"transaction type": ColType,
	"type":             ColType,
	"currency":         ColCurrency,
	"non-eur spending": ColNonEUR,
}

var requiredColumns = []string{ColDate, ColDescription, ColIncome, ColSpending, ColCategory}

var dateLayouts = []string{"2/1/2006", domain.DateLayout}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one parsed data row.
type Row struct {
	Index     int
	Candidate domain.Candidate
	Category  string // normalized; empty when the cell was blank

	Invalid    bool // a required field failed to parse
	DateParsed bool
	TypeKnown  bool
	Issues     []string
}

// Parse reads a CSV export. Missing required headers fail the whole
// document; every other problem is recorded on its row.
func Parse(ctx context.Context, data []byte) ([]Row, error) {
	log := logger.FromContext(ctx)

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.StructuralError{Source: sourceName, Reason: "empty document: no header row"}
	}
	if err != nil {
		return nil, &domain.StructuralError{Source: sourceName, Reason: fmt.Sprintf("reading header: %v", err)}
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.StructuralError{Source: sourceName, Reason: fmt.Sprintf("reading row %d: %v", len(rows)+1, err)}
		}
		if blankRecord(rec) {
			continue
		}
		rows = append(rows, parseRow(len(rows), cols.reader(rec)))
	}

	log.Debug().Int("rows", len(rows)).Int("columns", len(header)).Msg("parsed csv document")
	return rows, nil
}

type columns map[string]int

func mapHeader(header []string) (columns, error) {
	cols := columns{}
	for i, h := range header {
		key := strings.ToLower(strings.Join(strings.Fields(h), " "))
		if canon, ok := headerAliases[key]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.StructuralError{
			Source: sourceName,
			Reason: "missing required headers: " + strings.Join(missing, ", "),
		}
	}
	return cols, nil
}

type record struct {
	cols columns
	rec  []string
}

func (c columns) reader(rec []string) record { return record{cols: c, rec: rec} }

func (r record) has(col string) bool {
	_, ok := r.cols[col]
	return ok
}

// get returns the trimmed cell; short records read as blank.
func (r record) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func parseRow(index int, rec record) Row {
	row := Row{Index: index}
	c := &row.Candidate
	c.Source = sourceName
	c.Currency = "EUR"

	addIssue := func(field, value, reason string, invalid bool) {
		fe := &domain.FieldError{Row: index + 1, Field: field, Value: value, Reason: reason}
		row.Issues = append(row.Issues, fe.Issue())
		if invalid {
			row.Invalid = true
		}
	}

	rawDate := rec.get(ColDate)
	if d, ok := ParseDate(rawDate); ok {
		c.Date = d
		row.DateParsed = true
	} else {
		addIssue(ColDate, rawDate, "invalid date value", true)
	}

	c.Description = strings.Join(strings.Fields(rec.get(ColDescription)), " ")
	if c.Description == "" {
		addIssue(ColDescription, "", "missing value", true)
	}

	amount := func(col string) decimal.Decimal {
		raw := rec.get(col)
		if raw == "" {
			return decimal.Zero
		}
		d, ok := domain.ParseAmount(raw)
		if !ok {
			addIssue(col, raw, "unreadable amount, treated as 0", false)
		}
		return d
	}
	income := amount(ColIncome)
	spending := amount(ColSpending)
	capex := amount(ColCapex)

	if rawType := rec.get(ColType); rawType != "" {
		t, err := domain.ParseTransactionType(rawType)
		if err != nil {
			addIssue(ColType, rawType, "must be income, expense or capex", true)
		} else {
			c.Type = t
			row.TypeKnown = true
		}
	} else {
		switch {
		case income.IsPositive():
			c.Type = domain.TypeIncome
		case capex.IsPositive():
			c.Type = domain.TypeCapex
		default:
			c.Type = domain.TypeExpense
		}
		row.TypeKnown = true
	}
	switch c.Type {
	case domain.TypeIncome:
		c.Amount = income
	case domain.TypeCapex:
		c.Amount = capex
	case domain.TypeExpense:
		c.Amount = spending
	}

	row.Category = NormalizeCategory(rec.get(ColCategory))

	if src := rec.get(ColSource); src != "" {
		c.Source = src
	}
	if cur := rec.get(ColCurrency); cur != "" {
		c.Currency = strings.ToUpper(cur)
	}
	if rec.has(ColNonEUR) && rec.get(ColNonEUR) != "" {
		foreign := amount(ColNonEUR)
		c.ForeignAmount = &foreign
	}

	if row.DateParsed {
		checkPeriod(rec, c.Date, addIssue)
	}
	return row
}

// ParseDate accepts DD/MM/YYYY and YYYY-MM-DD.
func ParseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// checkPeriod cross-checks the optional Year and Month columns. A mismatch
// is informational only.
func checkPeriod(rec record, d civil.Date, addIssue func(field, value, reason string, invalid bool)) {
	if y := rec.get(ColYear); y != "" {
		if n, err := strconv.Atoi(y); err != nil || n != d.Year {
			addIssue(ColYear, y, "does not match date "+d.String(), false)
		}
	}
	if m := rec.get(ColMonth); m != "" && !monthMatches(m, d.Month) {
		addIssue(ColMonth, m, "does not match date "+d.String(), false)
	}
}

func monthMatches(s string, want time.Month) bool {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Month(n) == want
	}
	name := strings.ToLower(want.String())
	s = strings.ToLower(s)
	return len(s) >= 3 && strings.HasPrefix(name, s)
}

// NormalizeCategory trims and collapses whitespace, then capitalizes the
// first letter and lowercases the rest.
func NormalizeCategory(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	lower := cases.Lower(language.Und).String(s)
	r, size := utf8.DecodeRuneInString(lower)
	return cases.Upper(language.Und).String(string(r)) + lower[size:]
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
