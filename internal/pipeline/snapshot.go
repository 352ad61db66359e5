package pipeline

import (
	"context"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// Snapshot is the collaborator data read once at the start of a batch. It
// is not refreshed or modified while the batch runs.
type Snapshot struct {
	Categories []domain.Category
	Rules      []domain.CategoryRule
	History    []domain.HistoricalTransaction
}

// LoadSnapshot reads categories, rules and history for userID. Any failed
// read is returned as *domain.ExternalReadError.
func LoadSnapshot(ctx context.Context, store Store, userID string) (*Snapshot, error) {
	categories, err := store.ListCategories(ctx, userID)
	if err != nil {
		return nil, &domain.ExternalReadError{Op: "LoadSnapshot: list categories", Err: err}
	}
	rules, err := store.ListCategoryRules(ctx, userID)
	if err != nil {
		return nil, &domain.ExternalReadError{Op: "LoadSnapshot: list category rules", Err: err}
	}
	history, err := store.ListCategorizedHistory(ctx, userID)
	if err != nil {
		return nil, &domain.ExternalReadError{Op: "LoadSnapshot: list categorized history", Err: err}
	}
	return &Snapshot{Categories: categories, Rules: rules, History: history}, nil
}
