package pipeline

import "github.com/dvloznov/finance-ingest/internal/domain"

// RowSignals are the findings collected for one row by the parsers, the
// duplicate detector and category resolution.
type RowSignals struct {
	Invalid          bool
	FieldIssues      []string
	DuplicateIssue   string
	CategoryMismatch bool
	CategoryIssues   []string
}

// Aggregate folds a row's signals into one status. Precedence is
// invalid, duplicate, category mismatch, valid. Issues keep detection order.
func Aggregate(s RowSignals) (domain.Status, []string) {
	issues := make([]string, 0, len(s.FieldIssues)+1+len(s.CategoryIssues))
	issues = append(issues, s.FieldIssues...)
	if s.DuplicateIssue != "" {
		issues = append(issues, s.DuplicateIssue)
	}
	issues = append(issues, s.CategoryIssues...)

	switch {
	case s.Invalid:
		return domain.StatusInvalid, issues
	case s.DuplicateIssue != "":
		return domain.StatusDuplicate, issues
	case s.CategoryMismatch:
		return domain.StatusCategoryMismatch, issues
	}
	return domain.StatusValid, issues
}
