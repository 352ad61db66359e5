package statement

import (
	"context"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/shopspring/decimal"
)

// Options tunes statement parsing.
type Options struct {
	LineTolerance            float64
	BalanceOverrideThreshold decimal.Decimal
}

// DefaultOptions returns the built-in heuristics.
func DefaultOptions() Options {
	return Options{
		LineTolerance:            DefaultLineTolerance,
		BalanceOverrideThreshold: DefaultBalanceOverrideThreshold,
	}
}

// Parser turns bank statement PDFs into transaction candidates.
type Parser struct {
	opts       Options
	classifier *Classifier
}

// NewParser creates a parser with the given options.
func NewParser(opts Options) *Parser {
	if opts.LineTolerance <= 0 {
		opts.LineTolerance = DefaultLineTolerance
	}
	if !opts.BalanceOverrideThreshold.IsPositive() {
		opts.BalanceOverrideThreshold = DefaultBalanceOverrideThreshold
	}
	return &Parser{opts: opts, classifier: NewClassifier(opts.BalanceOverrideThreshold)}
}

// Parse extracts candidates from PDF bytes.
func (p *Parser) Parse(ctx context.Context, data []byte) ([]domain.Candidate, error) {
	log := logger.FromContext(ctx)

	pages, err := ExtractRuns(data)
	if err != nil {
		return nil, err
	}
	lines := ReconstructLines(pages, p.opts.LineTolerance)
	log.Debug().Int("pages", len(pages)).Int("lines", len(lines)).Msg("reconstructed statement lines")

	return p.ParseLines(ctx, lines)
}

// ParseLines runs segmentation and classification over already
// reconstructed lines.
func (p *Parser) ParseLines(ctx context.Context, lines []RawLine) ([]domain.Candidate, error) {
	entries, err := Segment(lines)
	if err != nil {
		return nil, err
	}
	candidates := p.classifier.Candidates(entries)
	log := logger.FromContext(ctx)
	log.Debug().
		Int("entries", len(entries)).
		Int("candidates", len(candidates)).
		Msg("segmented statement")
	return candidates, nil
}
