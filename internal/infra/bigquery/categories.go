package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

type CategoryRow struct {
	CategoryID string              `bigquery:"category_id"` // REQUIRED
	Name       string              `bigquery:"name"`        // REQUIRED
	Scope      bigquery.NullString `bigquery:"scope"`       // NULLABLE, global when NULL
	OwnerID    bigquery.NullString `bigquery:"owner_id"`    // NULLABLE
}

type CategoryRuleRow struct {
	RuleID     string              `bigquery:"rule_id"`     // REQUIRED
	Keywords   string              `bigquery:"keywords"`    // REQUIRED, comma-separated phrases
	CategoryID string              `bigquery:"category_id"` // REQUIRED
	Priority   int64               `bigquery:"priority"`    // REQUIRED
	Scope      bigquery.NullString `bigquery:"scope"`       // NULLABLE
	OwnerID    bigquery.NullString `bigquery:"owner_id"`    // NULLABLE
	IsActive   bigquery.NullBool   `bigquery:"is_active"`   // NULLABLE, active when NULL
	CreatedTS  time.Time           `bigquery:"created_ts"`  // REQUIRED
}

type HistoryRow struct {
	RawDescription string `bigquery:"raw_description"`
	CategoryName   string `bigquery:"category_name"`
}

func scopeOf(s bigquery.NullString) domain.Scope {
	if s.Valid && domain.Scope(s.StringVal) == domain.ScopeOwner {
		return domain.ScopeOwner
	}
	return domain.ScopeGlobal
}

// ToDomain converts the row.
func (r CategoryRow) ToDomain() domain.Category {
	return domain.Category{
		ID:      r.CategoryID,
		Name:    r.Name,
		Scope:   scopeOf(r.Scope),
		OwnerID: r.OwnerID.StringVal,
	}
}

// ToDomain converts the row, splitting the stored keyword list.
func (r CategoryRuleRow) ToDomain() domain.CategoryRule {
	return domain.CategoryRule{
		ID:         r.RuleID,
		Keywords:   domain.ParseKeywords(r.Keywords),
		CategoryID: r.CategoryID,
		Priority:   int(r.Priority),
		Scope:      scopeOf(r.Scope),
		OwnerID:    r.OwnerID.StringVal,
		Active:     !r.IsActive.Valid || r.IsActive.Bool,
		CreatedAt:  r.CreatedTS,
	}
}
