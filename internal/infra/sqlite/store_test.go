package sqlite

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))

	_, err = s.DB().ExecContext(ctx, `
		INSERT INTO categories (category_id, name, scope, owner_id, is_active) VALUES
		  ('c-gro', 'Groceries', 'global', NULL, 1),
		  ('c-old', 'Retired', 'global', NULL, 0),
		  ('c-pets', 'Pets', 'owner', 'u1', 1),
		  ('c-boat', 'Boat', 'owner', 'u2', 1);
		INSERT INTO category_rules (rule_id, keywords, category_id, priority, scope, owner_id, is_active, created_ts) VALUES
		  ('r-low', 'tesco', 'c-gro', 5, 'global', NULL, 1, '2025-01-01T00:00:00Z'),
		  ('r-high', 'Tesco, Lidl', 'c-gro', 10, 'global', NULL, 1, '2025-02-01T00:00:00Z'),
		  ('r-boat', 'marina', 'c-boat', 1, 'owner', 'u2', 1, '2025-01-01T00:00:00Z');
		INSERT INTO transactions (transaction_id, user_id, transaction_date, raw_description, amount, direction, category_name, created_ts) VALUES
		  ('t1', 'u1', '2025-01-15', 'Grocery shopping', '45.50', 'expense', 'Groceries', '2025-01-16T00:00:00Z'),
		  ('t2', 'u1', '2025-02-01', 'VET VISIT', '80.00', 'expense', 'Pets', '2025-02-02T00:00:00Z'),
		  ('t3', 'u1', '2025-02-03', 'UNCATEGORIZED', '1.00', 'expense', NULL, '2025-02-04T00:00:00Z'),
		  ('t4', 'u2', '2025-01-15', 'Grocery shopping', '45.50', 'expense', 'Groceries', '2025-01-16T00:00:00Z');
	`)
	require.NoError(t, err)
	return s
}

func TestStore_ListCategories(t *testing.T) {
	s := newTestStore(t)

	cats, err := s.ListCategories(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Groceries", cats[0].Name)
	assert.Equal(t, domain.ScopeGlobal, cats[0].Scope)
	assert.Equal(t, "Pets", cats[1].Name)
	assert.Equal(t, domain.ScopeOwner, cats[1].Scope)
	assert.Equal(t, "u1", cats[1].OwnerID)
}

func TestStore_ListCategoryRules(t *testing.T) {
	s := newTestStore(t)

	rules, err := s.ListCategoryRules(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r-high", rules[0].ID)
	assert.Equal(t, []string{"tesco", "lidl"}, rules[0].Keywords)
	assert.True(t, rules[0].Active)
	assert.Equal(t, 2025, rules[0].CreatedAt.Year())
}

func TestStore_ListCategorizedHistory(t *testing.T) {
	s := newTestStore(t)

	history, err := s.ListCategorizedHistory(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, []domain.HistoricalTransaction{
		{Description: "VET VISIT", CategoryName: "Pets"},
		{Description: "Grocery shopping", CategoryName: "Groceries"},
	}, history)
}

func TestStore_HasTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := domain.TransactionKey{
		Date:        civil.Date{Year: 2025, Month: 1, Day: 15},
		Description: "Grocery shopping",
		Amount:      decimal.RequireFromString("45.5"),
		Type:        domain.TypeExpense,
	}

	found, err := s.HasTransaction(ctx, "u1", key)
	require.NoError(t, err)
	assert.True(t, found)

	other := key
	other.Type = domain.TypeIncome
	found, err = s.HasTransaction(ctx, "u1", other)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.HasTransaction(ctx, "u3", key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_ClosedDatabaseErrors(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ListCategories(context.Background(), "u1")
	assert.Error(t, err)
}
