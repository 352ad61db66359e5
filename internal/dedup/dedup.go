package dedup

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// Lookup answers whether a transaction with exactly this key is already
// stored for the user.
type Lookup interface {
	HasTransaction(ctx context.Context, userID string, key domain.TransactionKey) (bool, error)
}

// Detector flags candidates that already exist in the store.
type Detector struct {
	lookup Lookup
}

// NewDetector creates a detector backed by lookup.
func NewDetector(lookup Lookup) *Detector {
	return &Detector{lookup: lookup}
}

// Check returns a non-empty issue when c duplicates a stored transaction.
// Failed lookups come back as *domain.ExternalReadError and are never
// treated as "not a duplicate".
func (d *Detector) Check(ctx context.Context, userID string, c domain.Candidate) (issue string, err error) {
	key := c.Key()
	found, err := d.lookup.HasTransaction(ctx, userID, key)
	if err != nil {
		return "", &domain.ExternalReadError{Op: "dedup.HasTransaction", Err: err}
	}
	if !found {
		return "", nil
	}
	return fmt.Sprintf("duplicate of an existing transaction (%s, %q, %s, %s)",
		key.Date, key.Description, key.Amount.StringFixed(2), key.Type), nil
}
