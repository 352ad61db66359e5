package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/gcs"
	"github.com/dvloznov/finance-ingest/internal/jobs"
	"github.com/dvloznov/finance-ingest/internal/rules"
	"github.com/fatih/color"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	validColor    = color.New(color.FgGreen)
	invalidColor  = color.New(color.FgRed)
	dupColor      = color.New(color.FgYellow)
	mismatchColor = color.New(color.FgMagenta)
	faintColor    = color.New(color.Faint)
)

const descWidth = 40

func statusColor(s domain.Status) *color.Color {
	switch s {
	case domain.StatusValid:
		return validColor
	case domain.StatusInvalid:
		return invalidColor
	case domain.StatusDuplicate:
		return dupColor
	}
	return mismatchColor
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatCandidateDate(c domain.Candidate) string {
	if !c.Date.IsValid() {
		return "----------"
	}
	return c.Date.String()
}

// printJob renders one finished validation job as a table.
func printJob(w io.Writer, job *jobs.ValidateDocumentJob) {
	name := gcs.Filename(job.URI)
	headerColor.Fprintf(w, "\n== %s ==\n", name)
	if name != job.URI {
		faintColor.Fprintf(w, "%s\n", job.URI)
	}
	if job.Status != jobs.JobStatusCompleted || job.Result == nil {
		invalidColor.Fprintf(w, "  %s: %s\n", job.Status, job.Error)
		return
	}
	printResult(w, job.Result)
}

func printResult(w io.Writer, r *domain.BatchResult) {
	faintColor.Fprintf(w, "batch %s  user %s  format %s\n", r.BatchID, r.UserID, r.Format)
	for _, o := range r.Outcomes {
		c := o.Candidate
		fmt.Fprintf(w, "%4d ", o.RowIndex)
		statusColor(o.Status).Fprintf(w, "%-17s", o.Status)
		fmt.Fprintf(w, " %s %10s %-7s %-20s %s\n",
			formatCandidateDate(c),
			c.Amount.StringFixed(2),
			c.Type,
			truncate(o.Category, 20),
			truncate(c.Description, descWidth),
		)
		for _, issue := range o.Issues {
			faintColor.Fprintf(w, "       - %s\n", issue)
		}
	}
	printSummary(w, r)
}

func printSummary(w io.Writer, r *domain.BatchResult) {
	s := r.Summary()
	fmt.Fprintf(w, "%d rows: ", r.TotalRows)
	validColor.Fprintf(w, "%d valid", s[domain.StatusValid])
	fmt.Fprint(w, ", ")
	invalidColor.Fprintf(w, "%d invalid", s[domain.StatusInvalid])
	fmt.Fprint(w, ", ")
	dupColor.Fprintf(w, "%d duplicate", s[domain.StatusDuplicate])
	fmt.Fprint(w, ", ")
	mismatchColor.Fprintf(w, "%d category mismatch", s[domain.StatusCategoryMismatch])
	fmt.Fprintln(w)
}

// printCandidates renders parser output without any store lookups.
func printCandidates(w io.Writer, candidates []domain.Candidate, issues [][]string) {
	for i, c := range candidates {
		fmt.Fprintf(w, "%4d %s %10s %-7s %s\n",
			i, formatCandidateDate(c), c.Amount.StringFixed(2), c.Type, truncate(c.Description, descWidth))
		if i < len(issues) {
			for _, issue := range issues[i] {
				invalidColor.Fprintf(w, "       - %s\n", issue)
			}
		}
	}
	fmt.Fprintf(w, "%d candidates\n", len(candidates))
}

func printRules(w io.Writer, evaluated []rules.EvaluatedRule) {
	headerColor.Fprintln(w, "Rules in evaluation order")
	for i, r := range evaluated {
		fmt.Fprintf(w, "%3d. [%3d] %-20s %s\n", i+1, r.Priority, r.CategoryName, strings.Join(r.Keywords, ", "))
	}
}

func printResolution(w io.Writer, description string, res rules.Resolution) {
	fmt.Fprintf(w, "%-40s -> ", truncate(description, descWidth))
	validColor.Fprintf(w, "%s", res.Category)
	faintColor.Fprintf(w, " (%s)", res.Source)
	fmt.Fprintln(w)
	if res.Note != "" {
		dupColor.Fprintf(w, "  %s\n", res.Note)
	}
}
