package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

// Store is the BigQuery implementation of pipeline.Store. It holds a shared
// client to avoid creating a new connection for each query. It only reads.
type Store struct {
	client  *bigquery.Client
	dataset string
}

// NewStore creates a Store with its own BigQuery client.
func NewStore(ctx context.Context, projectID, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return NewStoreWithClient(client, dataset), nil
}

// NewStoreWithClient creates a Store around an existing client.
func NewStoreWithClient(client *bigquery.Client, dataset string) *Store {
	return &Store{client: client, dataset: dataset}
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ListCategories delegates to ListCategoriesWithClient with the shared client.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	return ListCategoriesWithClient(ctx, s.client, s.dataset, userID)
}

// ListCategoryRules delegates to ListCategoryRulesWithClient with the shared client.
func (s *Store) ListCategoryRules(ctx context.Context, userID string) ([]domain.CategoryRule, error) {
	return ListCategoryRulesWithClient(ctx, s.client, s.dataset, userID)
}

// ListCategorizedHistory delegates to ListCategorizedHistoryWithClient with the shared client.
func (s *Store) ListCategorizedHistory(ctx context.Context, userID string) ([]domain.HistoricalTransaction, error) {
	return ListCategorizedHistoryWithClient(ctx, s.client, s.dataset, userID)
}

// HasTransaction delegates to HasTransactionWithClient with the shared client.
func (s *Store) HasTransaction(ctx context.Context, userID string, key domain.TransactionKey) (bool, error) {
	return HasTransactionWithClient(ctx, s.client, s.dataset, userID, key)
}
