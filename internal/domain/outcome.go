package domain

// Status is the per-row verdict of a validation batch.
type Status string

const (
	StatusValid            Status = "valid"
	StatusInvalid          Status = "invalid"
	StatusCategoryMismatch Status = "category_mismatch"
	StatusDuplicate        Status = "duplicate"
)

// Format identifies the kind of document a batch was read from.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// CategorySource records which resolution step produced a row's category.
type CategorySource string

const (
	CategoryFromRow          CategorySource = "row"
	CategoryFromOverride     CategorySource = "override"
	CategoryFromHistoryExact CategorySource = "history_exact"
	CategoryFromHistoryFuzzy CategorySource = "history_fuzzy"
	CategoryFromRule         CategorySource = "rule"
	CategoryFromDefault      CategorySource = "default"
)

// ValidationOutcome is the result for one input row. A batch produces exactly
// one outcome per row, in input order.
type ValidationOutcome struct {
	RowIndex       int            `json:"row_index"`
	Candidate      Candidate      `json:"candidate"`
	Category       string         `json:"category,omitempty"`
	CategoryID     string         `json:"category_id,omitempty"`
	CategorySource CategorySource `json:"category_source,omitempty"`
	Status         Status         `json:"status"`
	Issues         []string       `json:"issues"`
}

// BatchResult is everything a caller needs to review a document before
// committing a subset of it.
type BatchResult struct {
	BatchID   string              `json:"batch_id"`
	UserID    string              `json:"user_id"`
	Source    string              `json:"source"`
	Format    Format              `json:"format"`
	Outcomes  []ValidationOutcome `json:"outcomes"`
	TotalRows int                 `json:"total_rows"`
}

// Summary counts outcomes by status.
func (r *BatchResult) Summary() map[Status]int {
	counts := map[Status]int{
		StatusValid:            0,
		StatusInvalid:          0,
		StatusCategoryMismatch: 0,
		StatusDuplicate:        0,
	}
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}
