// Package sqlite is a local, pure-Go implementation of the read-only
// collaborator store, used for development databases and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/finance-ingest/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	category_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	scope       TEXT NOT NULL DEFAULT 'global',
	owner_id    TEXT,
	is_active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS category_rules (
	rule_id     TEXT PRIMARY KEY,
	keywords    TEXT NOT NULL,
	category_id TEXT NOT NULL REFERENCES categories(category_id),
	priority    INTEGER NOT NULL DEFAULT 0,
	scope       TEXT NOT NULL DEFAULT 'global',
	owner_id    TEXT,
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_ts  TEXT NOT NULL
);

-- amount holds the absolute value with two decimals, e.g. '45.50'.
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id   TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	transaction_date TEXT NOT NULL,
	raw_description  TEXT NOT NULL,
	amount           TEXT NOT NULL,
	direction        TEXT NOT NULL,
	category_name    TEXT,
	created_ts       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_transactions_key
	ON transactions(user_id, transaction_date, raw_description);
`

// Store reads categories, rules and transactions from a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("Open: creating directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: enabling foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for seeding development data.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables of a development database.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// ListCategories returns active categories visible to userID.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, name, scope, COALESCE(owner_id, '')
		FROM categories
		WHERE is_active = 1
		  AND (owner_id IS NULL OR owner_id = ?)
		ORDER BY name, category_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		var scope string
		if err := rows.Scan(&c.ID, &c.Name, &scope, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		c.Scope = domain.Scope(scope)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: rows: %w", err)
	}
	return out, nil
}

// ListCategoryRules returns the rules that could apply to userID.
func (s *Store) ListCategoryRules(ctx context.Context, userID string) ([]domain.CategoryRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, keywords, category_id, priority, scope, COALESCE(owner_id, ''), is_active, created_ts
		FROM category_rules
		WHERE owner_id IS NULL OR owner_id = ?
		ORDER BY priority DESC, created_ts, rule_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategoryRules: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CategoryRule
	for rows.Next() {
		var (
			r        domain.CategoryRule
			keywords string
			scope    string
			active   int
			created  string
		)
		if err := rows.Scan(&r.ID, &keywords, &r.CategoryID, &r.Priority, &scope, &r.OwnerID, &active, &created); err != nil {
			return nil, fmt.Errorf("ListCategoryRules: scan: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("ListCategoryRules: rule %s: created_ts: %w", r.ID, err)
		}
		r.Keywords = domain.ParseKeywords(keywords)
		r.Scope = domain.Scope(scope)
		r.Active = active != 0
		r.CreatedAt = ts
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategoryRules: rows: %w", err)
	}
	return out, nil
}

// ListCategorizedHistory returns the user's categorized transactions, most
// recent first.
func (s *Store) ListCategorizedHistory(ctx context.Context, userID string) ([]domain.HistoricalTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT raw_description, category_name
		FROM transactions
		WHERE user_id = ?
		  AND category_name IS NOT NULL
		  AND category_name != ''
		ORDER BY transaction_date DESC, created_ts DESC, transaction_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategorizedHistory: query: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoricalTransaction
	for rows.Next() {
		var h domain.HistoricalTransaction
		if err := rows.Scan(&h.Description, &h.CategoryName); err != nil {
			return nil, fmt.Errorf("ListCategorizedHistory: scan: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategorizedHistory: rows: %w", err)
	}
	return out, nil
}

// HasTransaction reports whether an exact duplicate of key is stored.
func (s *Store) HasTransaction(ctx context.Context, userID string, key domain.TransactionKey) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1)
		FROM transactions
		WHERE user_id = ?
		  AND transaction_date = ?
		  AND raw_description = ?
		  AND amount = ?
		  AND direction = ?`,
		userID, key.Date.String(), key.Description, key.Amount.Abs().StringFixed(2), string(key.Type),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("HasTransaction: %w", err)
	}
	return n > 0, nil
}
