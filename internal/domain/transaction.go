package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction. The sign of a movement is
// carried here, never in the amount.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
	TypeCapex   TransactionType = "capex"
)

// ParseTransactionType accepts income, expense or capex in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome, nil
	case TypeExpense:
		return TypeExpense, nil
	case TypeCapex:
		return TypeCapex, nil
	}
	return "", fmt.Errorf("invalid transaction type %q (must be income, expense or capex)", s)
}

// DateLayout is the normalized date format used for every candidate.
const DateLayout = "2006-01-02"

// Candidate is one transaction recovered from raw input, before a caller
// decides whether to commit it. Candidates are values and are not modified
// after the parser returns them.
type Candidate struct {
	Date         civil.Date       // transaction date
	Description  string           // whitespace-normalized description
	Amount       decimal.Decimal  // always >= 0
	Type         TransactionType  // income, expense or capex
	BalanceAfter *decimal.Decimal // running balance printed next to the row, if any

	Source   string // e.g. "csv", "statement", or the CSV Source column
	Currency string // ISO code, EUR unless the row says otherwise

	// ForeignAmount is the non-EUR spending column of the CSV format.
	ForeignAmount *decimal.Decimal
}

// Key returns the identity used for duplicate detection.
func (c Candidate) Key() TransactionKey {
	return TransactionKey{
		Date:        c.Date,
		Description: c.Description,
		Amount:      c.Amount,
		Type:        c.Type,
	}
}

// MarshalJSON renders dates as YYYY-MM-DD and money with two decimals.
func (c Candidate) MarshalJSON() ([]byte, error) {
	out := struct {
		Date          string          `json:"date"`
		Description   string          `json:"description"`
		Amount        string          `json:"amount"`
		Type          TransactionType `json:"type"`
		BalanceAfter  *string         `json:"balance_after,omitempty"`
		Source        string          `json:"source,omitempty"`
		Currency      string          `json:"currency,omitempty"`
		ForeignAmount *string         `json:"foreign_amount,omitempty"`
	}{
		Date:          formatDate(c.Date),
		Description:   c.Description,
		Amount:        c.Amount.StringFixed(2),
		Type:          c.Type,
		BalanceAfter:  fixedPtr(c.BalanceAfter),
		Source:        c.Source,
		Currency:      c.Currency,
		ForeignAmount: fixedPtr(c.ForeignAmount),
	}
	return json.Marshal(out)
}

func formatDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}

func fixedPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

// TransactionKey is the exact (date, description, amount, type) tuple two
// transactions must share to be considered duplicates.
type TransactionKey struct {
	Date        civil.Date
	Description string
	Amount      decimal.Decimal
	Type        TransactionType
}

func (k TransactionKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", formatDate(k.Date), k.Description, k.Amount.StringFixed(2), k.Type)
}

// HistoricalTransaction is a previously stored transaction whose category the
// user has already confirmed.
type HistoricalTransaction struct {
	Description  string
	CategoryName string
}
