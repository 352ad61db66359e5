package statement

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var (
	dateTokenRe  = regexp.MustCompile(`^(\d{1,2}) ([A-Za-z]{3}) (\d{4})\b`)
	amountRe     = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\.\d{2}\b`)
	pageMarkerRe = regexp.MustCompile(`(?i)^page \d+( of \d+)?$`)
)

var balanceForwardMarkers = []string{
	"balance forward",
	"balance brought forward",
}

var summaryMarkers = []string{
	"subtotal",
	"total:",
	"carried forward",
	"balance forward",
}

// Entry is one segmented statement row before type classification.
type Entry struct {
	Date        civil.Date
	Description string
	Amount      decimal.Decimal
	Balance     *decimal.Decimal // running balance printed on the row

	// BalanceForward entries carry only the opening balance. They seed
	// balance tracking and never become candidates.
	BalanceForward bool
}

type segmentState int

const (
	awaitingDate segmentState = iota
	awaitingAmount
)

// Segmenter turns reconstructed lines into statement entries.
type Segmenter struct {
	state   segmentState
	started bool
	date    civil.Date
	hasDate bool
	pending []string
	entries []Entry
}

// Segment runs a fresh segmenter over lines. A statement without the
// transaction table header is a StructuralError.
func Segment(lines []RawLine) ([]Entry, error) {
	s := &Segmenter{}
	for _, l := range lines {
		s.feed(l.Text)
	}
	if !s.started {
		return nil, &domain.StructuralError{Source: sourceName, Reason: "transaction table header not found"}
	}
	return s.entries, nil
}

func (s *Segmenter) feed(raw string) {
	text := normalizeText(raw)
	if text == "" {
		return
	}
	if isHeader(text) {
		s.started = true
		s.reset()
		return
	}
	if !s.started || pageMarkerRe.MatchString(text) {
		return
	}

	rest := text
	if d, tail, token, err := leadingDate(text); token {
		// Text still waiting for an amount belongs to the previous date.
		s.reset()
		if err != nil {
			// An impossible date starts a row we cannot place. Undated
			// continuation rows after it are dropped too.
			s.hasDate = false
			return
		}
		s.date, s.hasDate = d, true
		rest = tail
	}

	lower := strings.ToLower(rest)
	if containsAny(lower, balanceForwardMarkers) {
		s.reset()
		if tokens := amountRe.FindAllString(rest, -1); len(tokens) > 0 {
			if bal, ok := domain.ParseAmount(tokens[len(tokens)-1]); ok {
				s.entries = append(s.entries, Entry{Date: s.date, Balance: &bal, BalanceForward: true})
			}
		}
		return
	}
	if containsAny(lower, summaryMarkers) {
		s.reset()
		return
	}

	locs := amountRe.FindAllStringIndex(rest, -1)
	if len(locs) == 0 {
		if s.hasDate && rest != "" {
			s.pending = append(s.pending, rest)
			s.state = awaitingAmount
		}
		return
	}

	desc := stripSpans(rest, locs)
	if s.state == awaitingAmount {
		desc = strings.Join(s.pending, " ") + " " + desc
	}
	desc = normalizeText(desc)
	s.reset()
	if !s.hasDate || len(desc) <= 2 {
		return
	}

	amount, ok := domain.ParseAmount(rest[locs[0][0]:locs[0][1]])
	if !ok {
		return
	}
	e := Entry{Date: s.date, Description: desc, Amount: amount}
	if len(locs) > 1 {
		last := locs[len(locs)-1]
		if bal, ok := domain.ParseAmount(rest[last[0]:last[1]]); ok {
			e.Balance = &bal
		}
	}
	s.entries = append(s.entries, e)
}

func (s *Segmenter) reset() {
	s.pending = s.pending[:0]
	s.state = awaitingDate
}

func isHeader(text string) bool {
	return strings.Contains(text, "Date") &&
		strings.Contains(text, "Transaction details") &&
		(strings.Contains(text, "Payments") || strings.Contains(text, "Balance"))
}

// leadingDate parses a "D MMM YYYY" prefix and returns the remaining text.
// token reports whether the line starts with something shaped like a date;
// err is set when that token is not a real calendar date (31 Jun 2025).
func leadingDate(text string) (d civil.Date, tail string, token bool, err error) {
	m := dateTokenRe.FindStringSubmatch(text)
	if m == nil {
		return civil.Date{}, text, false, nil
	}
	month := strings.ToUpper(m[2][:1]) + strings.ToLower(m[2][1:])
	t, err := time.Parse("2 Jan 2006", m[1]+" "+month+" "+m[3])
	if err != nil {
		return civil.Date{}, text, true, fmt.Errorf("leadingDate: %q: %w", m[0], err)
	}
	return civil.DateOf(t), strings.TrimSpace(text[len(m[0]):]), true, nil
}

func stripSpans(s string, locs [][]int) string {
	var b strings.Builder
	prev := 0
	for _, l := range locs {
		b.WriteString(s[prev:l[0]])
		b.WriteByte(' ')
		prev = l[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// normalizeText collapses whitespace and applies NFC.
func normalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
