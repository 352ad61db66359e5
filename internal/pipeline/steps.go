package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/csvimport"
	"github.com/dvloznov/finance-ingest/internal/dedup"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/rules"
	"github.com/dvloznov/finance-ingest/internal/statement"
	"golang.org/x/sync/errgroup"
)

// PipelineStep represents a single step in the validation pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	BatchID string
	UserID  string
	URI     string
	Data    []byte
	Format  domain.Format

	Snapshot *Snapshot
	Engine   *rules.Engine
	Rows     []ParsedRow
	Outcomes []domain.ValidationOutcome
}

// ParsedRow is one row as the parsers left it, before collaborator lookups.
type ParsedRow struct {
	Candidate   domain.Candidate
	Category    string // supplied by the document; empty for statements
	Invalid     bool
	CanLookup   bool // date parsed and type known
	FieldIssues []string
}

// Step 1: FetchDocumentStep loads the document bytes unless the caller
// supplied them.
type FetchDocumentStep struct {
	Fetcher DocumentFetcher
}

func (s *FetchDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Data != nil || s.Fetcher == nil {
		return nil
	}
	data, err := s.Fetcher.Fetch(ctx, state.URI)
	if err != nil {
		return err
	}
	state.Data = data
	return nil
}

// Step 2: DetectFormatStep decides between the CSV and statement parsers.
type DetectFormatStep struct{}

func (s *DetectFormatStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Format != "" {
		return nil
	}
	f, err := DetectFormat(state.URI, state.Data)
	if err != nil {
		return err
	}
	state.Format = f
	return nil
}

// Step 3: ParseDocumentStep turns the document into rows. Structural
// failures abort the batch with no partial rows.
type ParseDocumentStep struct {
	Statement *statement.Parser
}

func (s *ParseDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	switch state.Format {
	case domain.FormatCSV:
		rows, err := csvimport.Parse(ctx, state.Data)
		if err != nil {
			return err
		}
		state.Rows = make([]ParsedRow, len(rows))
		for i, r := range rows {
			state.Rows[i] = ParsedRow{
				Candidate:   r.Candidate,
				Category:    r.Category,
				Invalid:     r.Invalid,
				CanLookup:   r.DateParsed && r.TypeKnown,
				FieldIssues: r.Issues,
			}
		}
	case domain.FormatPDF:
		candidates, err := s.Statement.Parse(ctx, state.Data)
		if err != nil {
			return err
		}
		state.Rows = make([]ParsedRow, len(candidates))
		for i, c := range candidates {
			state.Rows[i] = ParsedRow{Candidate: c, CanLookup: true}
		}
	default:
		return &domain.StructuralError{Source: state.URI, Reason: fmt.Sprintf("unsupported format %q", state.Format)}
	}
	return nil
}

// Step 4: LoadSnapshotStep reads collaborator data once and builds the
// category engine from it.
type LoadSnapshotStep struct {
	Store Store
	Rules rules.Options
}

func (s *LoadSnapshotStep) Execute(ctx context.Context, state *PipelineState) error {
	snap, err := LoadSnapshot(ctx, s.Store, state.UserID)
	if err != nil {
		return err
	}
	state.Snapshot = snap
	state.Engine = rules.NewEngine(state.UserID, snap.Categories, snap.Rules, snap.History, s.Rules)
	return nil
}

// Step 5: ResolveRowsStep runs duplicate checks and category resolution
// for every row and aggregates the outcomes in input order.
type ResolveRowsStep struct {
	Store       Store
	Concurrency int
}

func (s *ResolveRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	detector := dedup.NewDetector(s.Store)
	validator := NewCategoryValidator(state.Engine)
	outcomes := make([]domain.ValidationOutcome, len(state.Rows))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range state.Rows {
		row := state.Rows[i]
		g.Go(func() error {
			out, err := resolveRow(gctx, detector, validator, state.UserID, i, row)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	state.Outcomes = outcomes
	return nil
}

func resolveRow(ctx context.Context, detector *dedup.Detector, validator *CategoryValidator, userID string, index int, row ParsedRow) (domain.ValidationOutcome, error) {
	out := domain.ValidationOutcome{RowIndex: index, Candidate: row.Candidate}
	sig := RowSignals{Invalid: row.Invalid, FieldIssues: row.FieldIssues}

	// Invalid rows never reach collaborators.
	if !row.Invalid {
		if row.CanLookup {
			issue, err := detector.Check(ctx, userID, row.Candidate)
			if err != nil {
				return out, err
			}
			sig.DuplicateIssue = issue
		}

		check := validator.ValidateCategory(row.Category, row.Candidate.Description)
		out.Category = check.Name
		out.CategoryID = check.ID
		out.CategorySource = check.Source
		sig.CategoryMismatch = check.Mismatch
		sig.CategoryIssues = check.Issues
	}

	out.Status, out.Issues = Aggregate(sig)
	return out, nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug().Str("batch_id", state.BatchID).Str("step", fmt.Sprintf("%T", step)).Msg("running pipeline step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
