package rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []domain.Category{
	{ID: "c-ins", Name: "Insurance", Scope: domain.ScopeGlobal},
	{ID: "c-doc", Name: "Doctor", Scope: domain.ScopeGlobal},
	{ID: "c-gro", Name: "Groceries", Scope: domain.ScopeGlobal},
	{ID: "c-shop", Name: "Shopping", Scope: domain.ScopeGlobal},
	{ID: "c-other", Name: "Other", Scope: domain.ScopeGlobal},
	{ID: "c-pets", Name: "Pets", Scope: domain.ScopeOwner, OwnerID: "u1"},
	{ID: "c-boat", Name: "Boat", Scope: domain.ScopeOwner, OwnerID: "u2"},
}

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func rule(id, keywords, categoryID string, priority int, created time.Time) domain.CategoryRule {
	return domain.CategoryRule{
		ID:         id,
		Keywords:   domain.ParseKeywords(keywords),
		CategoryID: categoryID,
		Priority:   priority,
		Scope:      domain.ScopeGlobal,
		Active:     true,
		CreatedAt:  created,
	}
}

func TestResolve_OverrideBeatsRule(t *testing.T) {
	rules := []domain.CategoryRule{rule("r1", "vhi", "c-doc", 50, t0)}
	e := NewEngine("u1", testCategories, rules, nil, DefaultOptions())

	res := e.Resolve("VHI SEPA DD 123456")

	assert.Equal(t, "Insurance", res.Category)
	assert.Equal(t, "c-ins", res.CategoryID)
	assert.Equal(t, domain.CategoryFromOverride, res.Source)

	res = e.Resolve("VHI SWIFTCARE CLINIC")
	assert.Equal(t, "Doctor", res.Category)
	assert.Equal(t, domain.CategoryFromRule, res.Source)
}

func TestResolve_PriorityOrder(t *testing.T) {
	low := rule("low", "tesco", "c-shop", 5, t0)
	high := rule("high", "tesco", "c-gro", 10, t0.Add(time.Hour))

	for name, rules := range map[string][]domain.CategoryRule{
		"high first": {high, low},
		"low first":  {low, high},
	} {
		t.Run(name, func(t *testing.T) {
			e := NewEngine("u1", testCategories, rules, nil, DefaultOptions())
			res := e.Resolve("TESCO STORES 3312")
			assert.Equal(t, "Groceries", res.Category)
			assert.Equal(t, "c-gro", res.CategoryID)
		})
	}
}

func TestResolve_TieBreakOnCreation(t *testing.T) {
	newer := rule("newer", "market", "c-shop", 5, t0.Add(time.Hour))
	older := rule("older", "market", "c-gro", 5, t0)

	e := NewEngine("u1", testCategories, []domain.CategoryRule{newer, older}, nil, DefaultOptions())

	assert.Equal(t, "Groceries", e.Resolve("FARMERS MARKET").Category)
	ordered := e.Rules()
	require.Len(t, ordered, 2)
	assert.Equal(t, "older", ordered[0].ID)
}

func TestResolve_RuleScope(t *testing.T) {
	inactive := rule("inactive", "vet", "c-pets", 100, t0)
	inactive.Active = false
	foreign := rule("foreign", "marina", "c-boat", 100, t0)
	foreign.Scope, foreign.OwnerID = domain.ScopeOwner, "u2"
	own := rule("own", "vet", "c-pets", 1, t0)
	own.Scope, own.OwnerID = domain.ScopeOwner, "u1"

	e := NewEngine("u1", testCategories, []domain.CategoryRule{inactive, foreign, own}, nil, DefaultOptions())

	require.Len(t, e.Rules(), 1)
	assert.Equal(t, "Pets", e.Resolve("CITY VET CLINIC").Category)
	assert.Equal(t, domain.CategoryFromDefault, e.Resolve("MARINA FEES").Source)
}

func TestResolve_History(t *testing.T) {
	history := []domain.HistoricalTransaction{
		{Description: "Grocery shopping", CategoryName: "Groceries"},
		{Description: "POS LIDL DUBLIN 4", CategoryName: "Shopping"},
		{Description: "POS LIDL IRELAND DUBLIN", CategoryName: "Groceries"},
	}
	rules := []domain.CategoryRule{rule("r1", "grocery", "c-shop", 100, t0)}
	e := NewEngine("u1", testCategories, rules, history, DefaultOptions())

	res := e.Resolve("  GROCERY   shopping ")
	assert.Equal(t, "Groceries", res.Category)
	assert.Equal(t, domain.CategoryFromHistoryExact, res.Source)

	res = e.Resolve("POS LIDL DUBLIN 12")
	assert.Equal(t, "Shopping", res.Category, "first sufficient match in history order")
	assert.Equal(t, domain.CategoryFromHistoryFuzzy, res.Source)
}

func TestResolve_Default(t *testing.T) {
	e := NewEngine("u1", testCategories, nil, nil, DefaultOptions())

	res := e.Resolve("XYZ 123")

	assert.Equal(t, "Other", res.Category)
	assert.Equal(t, "c-other", res.CategoryID)
	assert.Equal(t, domain.CategoryFromDefault, res.Source)
	assert.Contains(t, res.Note, "ambiguous")
}

func TestLookup(t *testing.T) {
	e := NewEngine("u1", testCategories, nil, nil, DefaultOptions())

	c, ok := e.Lookup(" groceries ")
	require.True(t, ok)
	assert.Equal(t, "c-gro", c.ID)

	_, ok = e.Lookup("Boat")
	assert.False(t, ok, "other users' categories are not visible")
}

func TestSuggest(t *testing.T) {
	e := NewEngine("u1", testCategories, nil, nil, DefaultOptions())

	got, ok := e.Suggest("Grocerys")
	require.True(t, ok)
	assert.Equal(t, "Groceries", got)

	got, ok = e.Suggest("pest")
	require.True(t, ok)
	assert.Equal(t, "Pets", got)

	_, ok = e.Suggest("Holidays")
	assert.False(t, ok)

	_, ok = e.Suggest("Boats")
	assert.False(t, ok, "other users' categories are never suggested")
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"POS LIDL DUBLIN 4", "POS LIDL DUBLIN 12", true},
		{"Netflix.com", "NETFLIX", true},
		{"AMAZON MARKETPLACE EU PAYMENTS", "AMAZON PRIME VIDEO STREAMING EU", false},
		{"AMAZON MARKETPLACE EU PAYMENTS", "AMAZON MARKETPLACE PRIME", true},
		{"AB CD", "AB CD", false},
		{"", "", false},
		{"Spar Express", "Centra Express", true},
		{"Spar Express Rathmines Dublin", "Centra Express Dublin Road", true},
		{"Spar Express Rathmines Dublin", "Centra Express Cork City", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Similar(tt.a, tt.b))
			assert.Equal(t, tt.want, Similar(tt.b, tt.a))
		})
	}
}

func TestSimilarWith_Thresholds(t *testing.T) {
	a, b := "one two three four", "one five six seven"
	assert.False(t, SimilarWith(a, b, 2, 3))
	assert.True(t, SimilarWith(a, b, 1, 3))
	assert.True(t, SimilarWith(a, b, 2, 4))
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides([]byte("overrides:\n  - phrase: \"  Uber   EATS \"\n    category: Restaurants\n"))
	require.NoError(t, err)
	require.Len(t, o, 1)
	assert.Equal(t, "uber eats", o[0].Phrase)

	_, err = ParseOverrides([]byte("overrides:\n  - phrase: x\n"))
	assert.Error(t, err)

	_, err = ParseOverrides([]byte("overrides: ["))
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	def, err := LoadOverrides("")
	require.NoError(t, err)
	assert.Equal(t, "vhi sepa dd", def[0].Phrase)

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overrides:\n  - phrase: acme\n    category: Shopping\n"), 0o644))
	custom, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, []Override{{Phrase: "acme", Category: "Shopping"}}, custom)

	_, err = LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
