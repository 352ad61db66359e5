package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// ListCategorizedHistoryWithClient returns the user's committed transactions
// that carry a category, most recent first.
func ListCategorizedHistoryWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]domain.HistoricalTransaction, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
		  raw_description,
		  category_name
		FROM %s.%s
		WHERE user_id = @user_id
		  AND category_name IS NOT NULL
		  AND category_name != ''
		ORDER BY transaction_date DESC, created_ts DESC
	`, dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategorizedHistory: query read: %w", err)
	}

	var out []domain.HistoricalTransaction
	for {
		var r HistoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategorizedHistory: iter next: %w", err)
		}
		out = append(out, domain.HistoricalTransaction{Description: r.RawDescription, CategoryName: r.CategoryName})
	}

	return out, nil
}

// HasTransactionWithClient reports whether a transaction with exactly this
// date, description, amount and type is stored for userID.
func HasTransactionWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string, key domain.TransactionKey) (bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT COUNT(1) AS n
		FROM %s.%s
		WHERE user_id = @user_id
		  AND transaction_date = @transaction_date
		  AND raw_description = @raw_description
		  AND ABS(amount) = @amount
		  AND direction = @direction
	`, dataset, transactionsTable))
	q.Parameters = transactionKeyParams(userID, key)

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("HasTransaction: query read: %w", err)
	}

	var r countRow
	if err := it.Next(&r); err != nil && err != iterator.Done {
		return false, fmt.Errorf("HasTransaction: iter next: %w", err)
	}
	return r.N > 0, nil
}
