package bigquery

import (
	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

// transactionKeyParams binds a duplicate key to query parameters. Amounts
// are compared as NUMERIC.
func transactionKeyParams(userID string, key domain.TransactionKey) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_date", Value: key.Date},
		{Name: "raw_description", Value: key.Description},
		{Name: "amount", Value: key.Amount.Rat()},
		{Name: "direction", Value: string(key.Type)},
	}
}

type countRow struct {
	N int64 `bigquery:"n"`
}
