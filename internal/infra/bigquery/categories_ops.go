package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"google.golang.org/api/iterator"
)

const (
	categoriesTable    = "categories"
	categoryRulesTable = "category_rules"
)

// ListCategoriesWithClient returns active categories visible to userID,
// ordered by name.
func ListCategoriesWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]domain.Category, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
		  category_id,
		  name,
		  scope,
		  owner_id
		FROM %s.%s
		WHERE COALESCE(is_active, TRUE)
		  AND (owner_id IS NULL OR owner_id = @user_id)
		ORDER BY name, category_id
	`, dataset, categoriesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query read: %w", err)
	}

	var out []domain.Category
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iter next: %w", err)
		}
		out = append(out, r.ToDomain())
	}

	return out, nil
}

// ListCategoryRulesWithClient returns the rules that could apply to userID.
// Activity and scope are filtered again by the rule engine.
func ListCategoryRulesWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]domain.CategoryRule, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
		  rule_id,
		  keywords,
		  category_id,
		  priority,
		  scope,
		  owner_id,
		  is_active,
		  created_ts
		FROM %s.%s
		WHERE owner_id IS NULL OR owner_id = @user_id
		ORDER BY priority DESC, created_ts, rule_id
	`, dataset, categoryRulesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategoryRules: query read: %w", err)
	}

	var out []domain.CategoryRule
	for {
		var r CategoryRuleRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategoryRules: iter next: %w", err)
		}
		out = append(out, r.ToDomain())
	}

	return out, nil
}
