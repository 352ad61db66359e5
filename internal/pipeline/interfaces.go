package pipeline

import (
	"context"

	"github.com/dvloznov/finance-ingest/internal/dedup"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

// DocumentFetcher loads raw document bytes from a local path or a gs:// URI.
type DocumentFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Store is the read-only view of previously committed data that validation
// consults. Implementations never write during a batch.
type Store interface {
	// ListCategories returns every category the user can see.
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	// ListCategoryRules returns keyword rules; the engine filters scope and activity.
	ListCategoryRules(ctx context.Context, userID string) ([]domain.CategoryRule, error)
	// ListCategorizedHistory returns prior transactions with a confirmed category.
	ListCategorizedHistory(ctx context.Context, userID string) ([]domain.HistoricalTransaction, error)

	dedup.Lookup
}
