// Package rules resolves a category for a transaction description from
// overrides, the user's categorized history and keyword rules.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

// maxSuggestDistance bounds the edit distance of a "did you mean" hint.
const maxSuggestDistance = 2

// Options tunes resolution.
type Options struct {
	MinSharedWords   int
	SmallSetMaxWords int
	DefaultCategory  string
	Overrides        []Override
}

// DefaultOptions returns the built-in thresholds and override table.
func DefaultOptions() Options {
	return Options{
		MinSharedWords:   DefaultMinSharedWords,
		SmallSetMaxWords: DefaultSmallSetMaxWords,
		DefaultCategory:  domain.DefaultCategoryName,
		Overrides:        DefaultOverrides(),
	}
}

// Resolution is the category chosen for one description.
type Resolution struct {
	Category   string
	CategoryID string // empty when no stored category has this name
	Source     domain.CategorySource
	Note       string // set when the result is a fallback
}

// EvaluatedRule is a keyword rule in evaluation order with its category name.
type EvaluatedRule struct {
	domain.CategoryRule
	CategoryName string
}

// Engine is built once per batch from a read-only snapshot and is safe for
// concurrent use.
type Engine struct {
	opts       Options
	byName     map[string]domain.Category // lowercased name
	history    []domain.HistoricalTransaction
	historyKey []string
	rules      []EvaluatedRule
}

// NewEngine prepares an engine for userID. Rules that are inactive, out of
// scope, or point at a category the user cannot see are dropped.
func NewEngine(userID string, categories []domain.Category, rules []domain.CategoryRule, history []domain.HistoricalTransaction, opts Options) *Engine {
	if opts.MinSharedWords < 1 {
		opts.MinSharedWords = DefaultMinSharedWords
	}
	if opts.SmallSetMaxWords < 1 {
		opts.SmallSetMaxWords = DefaultSmallSetMaxWords
	}
	if strings.TrimSpace(opts.DefaultCategory) == "" {
		opts.DefaultCategory = domain.DefaultCategoryName
	}

	e := &Engine{
		opts:    opts,
		byName:  make(map[string]domain.Category, len(categories)),
		history: history,
	}

	byID := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		if !c.VisibleTo(userID) {
			continue
		}
		byID[c.ID] = c
		key := foldName(c.Name)
		// Owner categories shadow global ones of the same name.
		if existing, ok := e.byName[key]; !ok || existing.Scope == domain.ScopeGlobal {
			e.byName[key] = c
		}
	}

	e.historyKey = make([]string, len(history))
	for i, h := range history {
		e.historyKey[i] = foldName(h.Description)
	}

	for _, r := range rules {
		if !r.AppliesTo(userID) || len(r.Keywords) == 0 {
			continue
		}
		c, ok := byID[r.CategoryID]
		if !ok {
			continue
		}
		r.Keywords = domain.ParseKeywords(strings.Join(r.Keywords, ","))
		e.rules = append(e.rules, EvaluatedRule{CategoryRule: r, CategoryName: c.Name})
	}
	sort.SliceStable(e.rules, func(i, j int) bool {
		a, b := e.rules[i], e.rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return e
}

// Resolve picks a category for description. It always returns a result;
// falling through to the default category adds a note.
func (e *Engine) Resolve(description string) Resolution {
	desc := foldName(description)

	for _, o := range e.opts.Overrides {
		if strings.Contains(desc, o.Phrase) {
			return e.named(o.Category, domain.CategoryFromOverride)
		}
	}

	for i, key := range e.historyKey {
		if key != "" && key == desc {
			return e.named(e.history[i].CategoryName, domain.CategoryFromHistoryExact)
		}
	}
	for _, h := range e.history {
		if SimilarWith(description, h.Description, e.opts.MinSharedWords, e.opts.SmallSetMaxWords) {
			return e.named(h.CategoryName, domain.CategoryFromHistoryFuzzy)
		}
	}

	for _, r := range e.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return Resolution{Category: r.CategoryName, CategoryID: r.CategoryID, Source: domain.CategoryFromRule}
			}
		}
	}

	res := e.named(e.opts.DefaultCategory, domain.CategoryFromDefault)
	res.Note = fmt.Sprintf("ambiguous category: no override, history or rule matched, defaulted to %q", res.Category)
	return res
}

// Lookup finds an existing category case-insensitively.
func (e *Engine) Lookup(name string) (domain.Category, bool) {
	c, ok := e.byName[foldName(name)]
	return c, ok
}

// Suggest returns the existing category closest to name by edit distance,
// if one is within maxSuggestDistance. Ties go to the alphabetically first.
func (e *Engine) Suggest(name string) (string, bool) {
	key := foldName(name)
	keys := make([]string, 0, len(e.byName))
	for k := range e.byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestDist := "", maxSuggestDistance+1
	for _, k := range keys {
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			best, bestDist = e.byName[k].Name, d
		}
	}
	return best, best != ""
}

// Rules returns the keyword rules in evaluation order.
func (e *Engine) Rules() []EvaluatedRule {
	out := make([]EvaluatedRule, len(e.rules))
	copy(out, e.rules)
	return out
}

func (e *Engine) named(name string, src domain.CategorySource) Resolution {
	res := Resolution{Category: name, Source: src}
	if c, ok := e.Lookup(name); ok {
		res.CategoryID = c.ID
	}
	return res
}

func foldName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
