package pipeline

import (
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/rules"
)

// CategoryValidator checks a row's category against the user's categories,
// or resolves one when the row has none.
type CategoryValidator struct {
	engine *rules.Engine
}

// NewCategoryValidator wraps an engine built from the batch snapshot.
func NewCategoryValidator(engine *rules.Engine) *CategoryValidator {
	return &CategoryValidator{engine: engine}
}

// CategoryCheck is the outcome of ValidateCategory.
type CategoryCheck struct {
	Name     string
	ID       string
	Source   domain.CategorySource
	Mismatch bool
	Issues   []string
}

// ValidateCategory accepts a row-supplied category if it exists (case
// insensitive). An unknown category is flagged, not replaced. A blank one
// is resolved from the description.
func (v *CategoryValidator) ValidateCategory(rowCategory, description string) CategoryCheck {
	if rowCategory == "" {
		res := v.engine.Resolve(description)
		check := CategoryCheck{Name: res.Category, ID: res.CategoryID, Source: res.Source}
		if res.Note != "" {
			check.Issues = append(check.Issues, res.Note)
		}
		return check
	}

	check := CategoryCheck{Name: rowCategory, Source: domain.CategoryFromRow}
	c, ok := v.engine.Lookup(rowCategory)
	if !ok {
		check.Mismatch = true
		issue := fmt.Sprintf("invalid category: %q is not an existing category", rowCategory)
		if s, ok := v.engine.Suggest(rowCategory); ok {
			issue += fmt.Sprintf(" (did you mean %q?)", s)
		}
		check.Issues = append(check.Issues, issue)
		return check
	}
	check.ID = c.ID
	return check
}
