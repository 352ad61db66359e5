package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer("€", "", " ", "", "\u00a0", "", "EUR", "", "eur", "")

// thousandsRe matches comma-grouped amounts such as 1,234.56. Any other
// comma (a decimal comma like 45,50) makes the amount unreadable.
var thousandsRe = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseAmount reads a decimal amount written the way statements and exports
// print it: optional currency sign, thousands separators, surrounding space.
// The result is the absolute value. ok is false for blank or unreadable text.
func ParseAmount(s string) (amount decimal.Decimal, ok bool) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, false
	}
	// Accounting negatives: (12.50)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	if strings.Contains(cleaned, ",") {
		if !thousandsRe.MatchString(cleaned) {
			return decimal.Zero, false
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Abs(), true
}
