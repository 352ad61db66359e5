package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dvloznov/finance-ingest/internal/config"
	"github.com/dvloznov/finance-ingest/internal/gcs"
	infraBQ "github.com/dvloznov/finance-ingest/internal/infra/bigquery"
	"github.com/dvloznov/finance-ingest/internal/infra/sqlite"
	"github.com/dvloznov/finance-ingest/internal/pipeline"
	"github.com/dvloznov/finance-ingest/internal/rules"
	"github.com/dvloznov/finance-ingest/internal/statement"
	"github.com/shopspring/decimal"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStore connects to the configured collaborator store.
func openStore(ctx context.Context, cfg config.Config) (pipeline.Store, io.Closer, error) {
	switch cfg.Store.Backend {
	case "bigquery":
		s, err := infraBQ.NewStore(ctx, cfg.Store.ProjectID, cfg.Store.Dataset)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// openFetcher returns a fetcher that can read gs:// URIs when any of uris
// needs it, and local files otherwise.
func openFetcher(ctx context.Context, uris []string) (*gcs.Fetcher, io.Closer, error) {
	for _, u := range uris {
		if !gcs.IsURI(u) {
			continue
		}
		r, err := gcs.NewStorageReader(ctx)
		if err != nil {
			return nil, nil, err
		}
		return gcs.NewFetcher(r), r, nil
	}
	return gcs.NewFetcher(nil), closerFunc(func() error { return nil }), nil
}

func ruleOptions(cfg config.Config) (rules.Options, error) {
	opts := rules.DefaultOptions()
	opts.MinSharedWords = cfg.Rules.MinSharedWords
	opts.SmallSetMaxWords = cfg.Rules.SmallSetMaxWords
	opts.DefaultCategory = cfg.Ingest.DefaultCategory
	if cfg.Rules.OverridesFile != "" {
		overrides, err := rules.LoadOverrides(cfg.Rules.OverridesFile)
		if err != nil {
			return rules.Options{}, err
		}
		opts.Overrides = overrides
	}
	return opts, nil
}

func statementOptions(cfg config.Config) statement.Options {
	return statement.Options{
		LineTolerance:            cfg.Statement.LineTolerance,
		BalanceOverrideThreshold: decimal.NewFromFloat(cfg.Statement.BalanceOverrideThreshold),
	}
}
