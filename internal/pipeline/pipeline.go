package pipeline

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/rules"
	"github.com/dvloznov/finance-ingest/internal/statement"
	"github.com/google/uuid"
)

// Deps wires the validation pipeline to its collaborators.
type Deps struct {
	Store       Store
	Fetcher     DocumentFetcher
	Statement   *statement.Parser
	Rules       rules.Options
	Concurrency int
}

// Request describes one document to validate. Data, when set, is used
// instead of fetching URI.
type Request struct {
	UserID string
	URI    string
	Data   []byte
	Format domain.Format // optional; detected when empty
}

// Validator runs uncommitted validation batches. Nothing is persisted, so
// a batch can be re-run freely.
type Validator struct {
	pipeline *Pipeline
}

// NewValidator builds the standard validation pipeline.
func NewValidator(deps Deps) *Validator {
	if deps.Statement == nil {
		deps.Statement = statement.NewParser(statement.DefaultOptions())
	}
	return &Validator{pipeline: NewValidationPipeline(deps)}
}

// NewValidationPipeline creates the standard 5-step validation pipeline.
func NewValidationPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&FetchDocumentStep{Fetcher: deps.Fetcher},
		&DetectFormatStep{},
		&ParseDocumentStep{Statement: deps.Statement},
		&LoadSnapshotStep{Store: deps.Store, Rules: deps.Rules},
		&ResolveRowsStep{Store: deps.Store, Concurrency: deps.Concurrency},
	)
}

// Validate processes one document and returns one outcome per row in input
// order. Structural and external read failures return an error and no
// partial result.
func (v *Validator) Validate(ctx context.Context, req Request) (*domain.BatchResult, error) {
	state := &PipelineState{
		BatchID: uuid.NewString(),
		UserID:  req.UserID,
		URI:     req.URI,
		Data:    req.Data,
		Format:  req.Format,
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"batch_id": state.BatchID,
		"user_id":  state.UserID,
		"source":   state.URI,
	})
	ctx = logger.WithContext(ctx, log)

	if err := v.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("validation batch failed")
		return nil, err
	}

	result := &domain.BatchResult{
		BatchID:   state.BatchID,
		UserID:    state.UserID,
		Source:    state.URI,
		Format:    state.Format,
		Outcomes:  state.Outcomes,
		TotalRows: len(state.Outcomes),
	}
	if result.Outcomes == nil {
		result.Outcomes = []domain.ValidationOutcome{}
	}

	summary := result.Summary()
	log.Info().
		Str("format", string(result.Format)).
		Int("total_rows", result.TotalRows).
		Int("valid", summary[domain.StatusValid]).
		Int("invalid", summary[domain.StatusInvalid]).
		Int("duplicate", summary[domain.StatusDuplicate]).
		Int("category_mismatch", summary[domain.StatusCategoryMismatch]).
		Msg("validation batch complete")
	return result, nil
}

var pdfMagic = []byte("%PDF-")

// DetectFormat picks a parser from the document's magic bytes, falling back
// to the file extension.
func DetectFormat(uri string, data []byte) (domain.Format, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return domain.FormatPDF, nil
	}
	switch strings.ToLower(path.Ext(uri)) {
	case ".pdf":
		return domain.FormatPDF, nil
	case ".csv", ".txt", "":
		return domain.FormatCSV, nil
	}
	return "", &domain.StructuralError{Source: uri, Reason: "unsupported document type " + path.Ext(uri)}
}
