package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Store     StoreConfig
	Ingest    IngestConfig
	Statement StatementConfig
	Rules     RulesConfig
	Log       LogConfig
}

// StoreConfig selects the read-only collaborator store.
type StoreConfig struct {
	Backend    string // bigquery or sqlite
	ProjectID  string `mapstructure:"project_id"`
	Dataset    string
	SQLitePath string `mapstructure:"sqlite_path"`
}

// IngestConfig holds batch settings.
type IngestConfig struct {
	UserID          string `mapstructure:"user_id"`
	Concurrency     int    // concurrent per-row lookups within one batch
	Workers         int    // documents validated in parallel
	MaxRetries      int    `mapstructure:"max_retries"`
	DefaultCategory string `mapstructure:"default_category"`
}

// StatementConfig holds PDF statement heuristics.
type StatementConfig struct {
	LineTolerance float64 `mapstructure:"line_tolerance"`
	// BalanceOverrideThreshold is the amount above which a disagreeing
	// balance delta overrides keyword-based type classification.
	BalanceOverrideThreshold float64 `mapstructure:"balance_override_threshold"`
}

// RulesConfig holds category resolution tunables.
type RulesConfig struct {
	MinSharedWords   int    `mapstructure:"min_shared_words"`
	SmallSetMaxWords int    `mapstructure:"small_set_max_words"`
	OverridesFile    string `mapstructure:"overrides_file"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.project_id", "studious-union-470122-v7")
	v.SetDefault("store.dataset", "finance")
	v.SetDefault("store.sqlite_path", filepath.Join(os.Getenv("HOME"), ".local", "share", "finance-ingest", "finance.db"))
	v.SetDefault("ingest.user_id", "denis")
	v.SetDefault("ingest.concurrency", 8)
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.default_category", "Other")
	v.SetDefault("statement.line_tolerance", 2.0)
	v.SetDefault("statement.balance_override_threshold", 100.0)
	v.SetDefault("rules.min_shared_words", 2)
	v.SetDefault("rules.small_set_max_words", 3)
	v.SetDefault("rules.overrides_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Default returns the built-in configuration without reading files or env.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return c
}

// Load reads configuration from file and env. Env var overrides use prefix FINGEST_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	cfgPath := os.Getenv("FINGEST_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "finance-ingest"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicitly named file must exist; the default location is optional.
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "bigquery":
		if c.Store.ProjectID == "" || c.Store.Dataset == "" {
			return fmt.Errorf("config: bigquery backend requires store.project_id and store.dataset")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: sqlite backend requires store.sqlite_path")
		}
	default:
		return fmt.Errorf("config: unknown store.backend %q (want bigquery or sqlite)", c.Store.Backend)
	}
	if c.Ingest.UserID == "" {
		return fmt.Errorf("config: ingest.user_id is required")
	}
	if c.Ingest.Concurrency < 1 || c.Ingest.Workers < 1 {
		return fmt.Errorf("config: ingest.concurrency and ingest.workers must be >= 1")
	}
	if c.Ingest.MaxRetries < 0 {
		return fmt.Errorf("config: ingest.max_retries must be >= 0")
	}
	if strings.TrimSpace(c.Ingest.DefaultCategory) == "" {
		return fmt.Errorf("config: ingest.default_category cannot be empty")
	}
	if c.Statement.LineTolerance <= 0 {
		return fmt.Errorf("config: statement.line_tolerance must be > 0")
	}
	if c.Statement.BalanceOverrideThreshold <= 0 {
		return fmt.Errorf("config: statement.balance_override_threshold must be > 0")
	}
	if c.Rules.MinSharedWords < 1 || c.Rules.SmallSetMaxWords < 1 {
		return fmt.Errorf("config: rules word thresholds must be >= 1")
	}
	return nil
}
