package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "sqlite", c.Store.Backend)
	assert.Equal(t, 2.0, c.Statement.LineTolerance)
	assert.Equal(t, 100.0, c.Statement.BalanceOverrideThreshold)
	assert.Equal(t, 2, c.Rules.MinSharedWords)
	assert.Equal(t, 3, c.Rules.SmallSetMaxWords)
	assert.Equal(t, "Other", c.Ingest.DefaultCategory)
	assert.NoError(t, c.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: bigquery
  project_id: test-project
  dataset: ledger
ingest:
  user_id: alice
  concurrency: 2
statement:
  balance_override_threshold: 250
`), 0o644))

	t.Setenv("FINGEST_CONFIG", path)
	t.Setenv("FINGEST_RULES_MIN_SHARED_WORDS", "3")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bigquery", c.Store.Backend)
	assert.Equal(t, "test-project", c.Store.ProjectID)
	assert.Equal(t, "ledger", c.Store.Dataset)
	assert.Equal(t, "alice", c.Ingest.UserID)
	assert.Equal(t, 2, c.Ingest.Concurrency)
	assert.Equal(t, 250.0, c.Statement.BalanceOverrideThreshold)
	assert.Equal(t, 3, c.Rules.MinSharedWords)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("FINGEST_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"bigquery without dataset", func(c *Config) { c.Store.Backend = "bigquery"; c.Store.Dataset = "" }},
		{"empty user", func(c *Config) { c.Ingest.UserID = "" }},
		{"zero concurrency", func(c *Config) { c.Ingest.Concurrency = 0 }},
		{"zero tolerance", func(c *Config) { c.Statement.LineTolerance = 0 }},
		{"negative threshold", func(c *Config) { c.Statement.BalanceOverrideThreshold = -1 }},
		{"zero threshold", func(c *Config) { c.Statement.BalanceOverrideThreshold = 0 }},
		{"zero shared words", func(c *Config) { c.Rules.MinSharedWords = 0 }},
		{"blank default category", func(c *Config) { c.Ingest.DefaultCategory = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
