package domain

import (
	"strings"
	"time"
)

// Scope says who a category or rule belongs to.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeOwner  Scope = "owner"
)

// DefaultCategoryName is used when nothing else matches.
const DefaultCategoryName = "Other"

// Category is an existing category known to the store.
type Category struct {
	ID      string
	Name    string
	Scope   Scope
	OwnerID string // set when Scope is ScopeOwner
}

// VisibleTo reports whether the category can be used by userID.
func (c Category) VisibleTo(userID string) bool {
	return c.Scope != ScopeOwner || c.OwnerID == userID
}

// CategoryRule maps keyword phrases to a category.
type CategoryRule struct {
	ID         string
	Keywords   []string // lowercase phrases, matched as substrings
	CategoryID string
	Priority   int
	Scope      Scope
	OwnerID    string
	Active     bool
	CreatedAt  time.Time
}

// AppliesTo reports whether the rule is active and in scope for userID.
func (r CategoryRule) AppliesTo(userID string) bool {
	if !r.Active {
		return false
	}
	return r.Scope != ScopeOwner || r.OwnerID == userID
}

// ParseKeywords splits the stored comma-separated keyword text into
// lowercase, trimmed phrases. Empty phrases are dropped.
func ParseKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
