package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRow_ToDomain(t *testing.T) {
	global := CategoryRow{CategoryID: "c1", Name: "Groceries"}
	assert.Equal(t, domain.Category{ID: "c1", Name: "Groceries", Scope: domain.ScopeGlobal}, global.ToDomain())

	owned := CategoryRow{
		CategoryID: "c2",
		Name:       "Pets",
		Scope:      bigquery.NullString{StringVal: "owner", Valid: true},
		OwnerID:    bigquery.NullString{StringVal: "u1", Valid: true},
	}
	got := owned.ToDomain()
	assert.Equal(t, domain.ScopeOwner, got.Scope)
	assert.Equal(t, "u1", got.OwnerID)
}

func TestCategoryRuleRow_ToDomain(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	row := CategoryRuleRow{
		RuleID:     "r1",
		Keywords:   " Tesco, LIDL ,,aldi",
		CategoryID: "c1",
		Priority:   10,
		CreatedTS:  created,
	}

	r := row.ToDomain()
	assert.Equal(t, []string{"tesco", "lidl", "aldi"}, r.Keywords)
	assert.Equal(t, 10, r.Priority)
	assert.True(t, r.Active, "NULL is_active counts as active")
	assert.Equal(t, created, r.CreatedAt)

	row.IsActive = bigquery.NullBool{Bool: false, Valid: true}
	assert.False(t, row.ToDomain().Active)
}

func TestTransactionKeyParams(t *testing.T) {
	key := domain.TransactionKey{
		Date:        civil.Date{Year: 2025, Month: 1, Day: 15},
		Description: "Grocery shopping",
		Amount:      decimal.RequireFromString("45.50"),
		Type:        domain.TypeExpense,
	}

	params := transactionKeyParams("u1", key)

	require.Len(t, params, 5)
	byName := map[string]interface{}{}
	for _, p := range params {
		byName[p.Name] = p.Value
	}
	assert.Equal(t, "u1", byName["user_id"])
	assert.Equal(t, key.Date, byName["transaction_date"])
	assert.Equal(t, "expense", byName["direction"])
	rat, ok := byName["amount"].(*big.Rat)
	require.True(t, ok)
	assert.Equal(t, 0, rat.Cmp(big.NewRat(91, 2)))
}
