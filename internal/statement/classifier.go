package statement

import (
	"strings"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultBalanceOverrideThreshold is the amount above which a disagreeing
// balance movement overrides keyword classification.
var DefaultBalanceOverrideThreshold = decimal.NewFromInt(100)

var expenseMarkers = []string{"SEPA DD", "DIRECT DEBIT", "FEE:", "CHARGE"}

// vendorOverride pins the type for descriptions that would otherwise trip
// the income cues.
type vendorOverride struct {
	Match string
	Type  domain.TransactionType
}

var defaultVendorOverrides = []vendorOverride{
	{Match: "CREDIT UNION", Type: domain.TypeExpense},
	{Match: "CREDIT CARD", Type: domain.TypeExpense},
	{Match: "CREDIT AGRICOLE", Type: domain.TypeExpense},
	{Match: "SPOTIFY", Type: domain.TypeExpense},
	{Match: "NETFLIX", Type: domain.TypeExpense},
	{Match: "REVOLUT TOPUP", Type: domain.TypeExpense},
	{Match: "INTEREST PAID", Type: domain.TypeIncome},
}

var incomeCues = []string{"CREDIT", "DEPOSIT", "SALARY", "REFUND", "LODGEMENT", "TRANSFER IN"}

var incomeSuffixes = []string{"SP", "CR"}

// Classifier assigns a transaction type to statement entries.
type Classifier struct {
	threshold decimal.Decimal
	overrides []vendorOverride
}

// NewClassifier returns a classifier using the built-in vendor table.
func NewClassifier(threshold decimal.Decimal) *Classifier {
	return &Classifier{threshold: threshold, overrides: defaultVendorOverrides}
}

// Classify returns the keyword-derived type. fixed is true when an explicit
// marker or vendor override decided, in which case balance movement must not
// change the result.
func (c *Classifier) Classify(description string) (t domain.TransactionType, fixed bool) {
	upper := strings.ToUpper(description)
	for _, m := range expenseMarkers {
		if strings.Contains(upper, m) {
			return domain.TypeExpense, true
		}
	}
	for _, o := range c.overrides {
		if strings.Contains(upper, o.Match) {
			return o.Type, true
		}
	}
	for _, cue := range incomeCues {
		if strings.Contains(upper, cue) {
			return domain.TypeIncome, false
		}
	}
	if fields := strings.Fields(upper); len(fields) > 0 {
		last := fields[len(fields)-1]
		for _, s := range incomeSuffixes {
			if last == s {
				return domain.TypeIncome, false
			}
		}
	}
	return domain.TypeExpense, false
}

// Candidates classifies entries in order. The balance of the immediately
// preceding entry, or of a balance-forward line, corroborates the keyword
// type for amounts above the threshold.
func (c *Classifier) Candidates(entries []Entry) []domain.Candidate {
	var (
		out  []domain.Candidate
		prev *decimal.Decimal
	)
	for _, e := range entries {
		if e.BalanceForward {
			prev = e.Balance
			continue
		}
		t, fixed := c.Classify(e.Description)
		if !fixed && prev != nil && e.Balance != nil && e.Amount.GreaterThan(c.threshold) {
			t = reconcile(t, e.Balance.Sub(*prev))
		}
		out = append(out, domain.Candidate{
			Date:         e.Date,
			Description:  e.Description,
			Amount:       e.Amount,
			Type:         t,
			BalanceAfter: e.Balance,
			Source:       sourceName,
			Currency:     "EUR",
		})
		prev = e.Balance
	}
	return out
}

func reconcile(t domain.TransactionType, delta decimal.Decimal) domain.TransactionType {
	switch {
	case delta.IsPositive() && t != domain.TypeIncome:
		return domain.TypeIncome
	case delta.IsNegative() && t == domain.TypeIncome:
		return domain.TypeExpense
	}
	return t
}
