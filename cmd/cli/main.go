package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dvloznov/finance-ingest/internal/config"
	"github.com/dvloznov/finance-ingest/internal/csvimport"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/infra/sqlite"
	"github.com/dvloznov/finance-ingest/internal/jobs"
	"github.com/dvloznov/finance-ingest/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/pipeline"
	"github.com/dvloznov/finance-ingest/internal/rules"
	"github.com/dvloznov/finance-ingest/internal/statement"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	switch os.Args[1] {
	case "validate":
		runValidate(log, cfg)
	case "parse":
		runParse(log, cfg)
	case "rules":
		runRules(log, cfg)
	case "init-db":
		runInitDB(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Ingest CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  validate  Validate CSV exports or PDF statements without committing them")
	fmt.Println("  parse     Show the candidates a document yields, without store lookups")
	fmt.Println("  rules     List category rules or resolve descriptions")
	fmt.Println("  init-db   Create the local SQLite schema")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nDocuments may be local paths or gs:// URIs.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runValidate(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	userID := fs.String("user", cfg.Ingest.UserID, "User the batch is validated for")
	format := fs.String("format", "", "Force document format (csv or pdf)")
	asJSON := fs.Bool("json", false, "Print results as JSON")
	fs.Parse(os.Args[2:])

	uris := fs.Args()
	if len(uris) == 0 {
		log.Fatal().Msg("Usage: cli validate [-user ID] [-format csv|pdf] [-json] FILE...")
	}

	ctx, cancel := signalContext(10 * time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, storeCloser, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer storeCloser.Close()

	fetcher, fetcherCloser, err := openFetcher(ctx, uris)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer fetcherCloser.Close()

	ruleOpts, err := ruleOptions(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category overrides")
	}

	validator := pipeline.NewValidator(pipeline.Deps{
		Store:       store,
		Fetcher:     fetcher,
		Statement:   statement.NewParser(statementOptions(cfg)),
		Rules:       ruleOpts,
		Concurrency: cfg.Ingest.Concurrency,
	})

	jobStore := inmemory.NewStore()
	qopts := inmemory.DefaultOptions()
	qopts.Workers = cfg.Ingest.Workers
	qopts.MaxRetries = cfg.Ingest.MaxRetries
	queue := inmemory.NewQueue(qopts, jobStore)

	handler := func(ctx context.Context, job *jobs.ValidateDocumentJob) (*domain.BatchResult, error) {
		return validator.Validate(ctx, pipeline.Request{
			UserID: job.UserID,
			URI:    job.URI,
			Format: domain.Format(*format),
		})
	}
	if err := queue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start workers")
	}

	ids := make([]string, 0, len(uris))
	for _, uri := range uris {
		job := &jobs.ValidateDocumentJob{UserID: *userID, URI: uri}
		if err := queue.PublishValidateDocument(ctx, job); err != nil {
			log.Fatal().Err(err).Str("uri", uri).Msg("Failed to queue document")
		}
		ids = append(ids, job.JobID)
	}

	if err := queue.Wait(ctx); err != nil {
		log.Fatal().Err(err).Msg("Validation interrupted")
	}
	if err := queue.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("Workers did not stop cleanly")
	}

	finished := make([]*jobs.ValidateDocumentJob, 0, len(ids))
	failed := 0
	for _, id := range ids {
		job, err := jobStore.GetJob(ctx, id)
		if err != nil {
			log.Fatal().Err(err).Msg("Lost job state")
		}
		if job.Status != jobs.JobStatusCompleted {
			failed++
		}
		finished = append(finished, job)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(finished); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode results")
		}
	} else {
		for _, job := range finished {
			printJob(os.Stdout, job)
		}
	}

	if failed > 0 {
		os.Exit(2)
	}
}

func runParse(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	format := fs.String("format", "", "Force document format (csv or pdf)")
	asJSON := fs.Bool("json", false, "Print candidates as JSON")
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		log.Fatal().Msg("Usage: cli parse [-format csv|pdf] [-json] FILE")
	}
	uri := fs.Arg(0)

	ctx, cancel := signalContext(5 * time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	fetcher, closer, err := openFetcher(ctx, []string{uri})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer closer.Close()

	data, err := fetcher.Fetch(ctx, uri)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read document")
	}

	f := domain.Format(*format)
	if f == "" {
		if f, err = pipeline.DetectFormat(uri, data); err != nil {
			log.Fatal().Err(err).Msg("Unsupported document")
		}
	}

	var (
		candidates []domain.Candidate
		issues     [][]string
	)
	switch f {
	case domain.FormatCSV:
		rows, err := csvimport.Parse(ctx, data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to parse CSV")
		}
		for _, r := range rows {
			candidates = append(candidates, r.Candidate)
			issues = append(issues, r.Issues)
		}
	case domain.FormatPDF:
		candidates, err = statement.NewParser(statementOptions(cfg)).Parse(ctx, data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to parse statement")
		}
	default:
		log.Fatal().Str("format", string(f)).Msg("Unknown format")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(candidates); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode candidates")
		}
		return
	}
	printCandidates(os.Stdout, candidates, issues)
}

func runRules(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	userID := fs.String("user", cfg.Ingest.UserID, "User whose categories and rules are loaded")
	fs.Parse(os.Args[2:])

	ctx, cancel := signalContext(2 * time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closer.Close()

	opts, err := ruleOptions(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category overrides")
	}

	snap, err := pipeline.LoadSnapshot(ctx, store, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load categories")
	}
	engine := rules.NewEngine(*userID, snap.Categories, snap.Rules, snap.History, opts)

	if fs.NArg() == 0 {
		printRules(os.Stdout, engine.Rules())
		return
	}
	for _, desc := range fs.Args() {
		printResolution(os.Stdout, desc, engine.Resolve(desc))
	}
}

func runInitDB(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("init-db", flag.ExitOnError)
	path := fs.String("path", cfg.Store.SQLitePath, "SQLite database file")
	fs.Parse(os.Args[2:])

	ctx, cancel := signalContext(time.Minute)
	defer cancel()

	s, err := sqlite.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer s.Close()

	if err := s.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create schema")
	}
	log.Info().Str("path", *path).Msg("Schema ready")
}
