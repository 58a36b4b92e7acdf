// =============================================================================
// Sienge Budget Normalizer - Verification Engine
// =============================================================================
//
// This module checks a normalized budget against the budget it came from.
// The checks are the ones used to accept a normalized sheet before it is
// imported into Sienge:
//   - Every input task appears in the output (count in == count out)
//   - Every output task is at level 4
//   - No two output tasks share an identifier
//   - Every output task has its level-3 header somewhere in the output
//   - Flattened identifiers (a 4th segment longer than 3 digits) are
//     reported with a few samples
//
// ERROR HANDLING:
//   - Findings are collected, not returned one at a time
//   - Each finding has a severity: "error" or "warning"
//   - The caller decides whether errors stop the file (continue_on_error)
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// maxSamples bounds the flattened identifiers kept in a Report.
const maxSamples = 5

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single verification finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Item is the output identifier concerned, when there is one.
	Item string

	// Rule is a short name of the violated check.
	Rule string

	// Message is a human-readable description.
	Message string

	// RowNumber is the 1-based output row (0 when not row-specific).
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(e.Severity), e.Rule)
	if e.RowNumber > 0 {
		fmt.Fprintf(&b, ", row %d", e.RowNumber)
	}
	if e.Item != "" {
		fmt.Fprintf(&b, ", item '%s'", e.Item)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

// =============================================================================
// VERIFICATION REPORT
// =============================================================================

// Report is the outcome of Verify.
type Report struct {
	// TasksIn counts input tasks expected in the output (level 2 and deeper).
	TasksIn int

	// TasksOut counts output rows carrying a cost code.
	TasksOut int

	// GroupsIn counts input header rows.
	GroupsIn int

	// HeadersOut counts output header rows, synthetic ones included.
	HeadersOut int

	// Flattened counts output tasks whose 4th segment is longer than 3.
	Flattened int

	// FlattenedSamples holds the first few flattened identifiers.
	FlattenedSamples []string

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

// IsValid is true when there are no error-severity findings.
func (r *Report) IsValid() bool {
	return r.ErrorCount == 0
}

func (r *Report) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// MAIN VERIFICATION FUNCTION
// =============================================================================

// Verify compares the classified input with the normalized output.
func Verify(records []types.Record, output []types.OutputRecord) *Report {
	report := &Report{Errors: make([]*ValidationError, 0)}

	for _, rec := range records {
		switch r := rec.(type) {
		case types.Group:
			report.GroupsIn++
		case types.Task:
			if r.ItemID().Level() == 1 {
				report.add(&ValidationError{
					Severity: SeverityWarning,
					Item:     r.ItemID().Padded(),
					Rule:     "root_task",
					Message:  fmt.Sprintf("task %q has no parent level and was kept as a header", r.Description),
				})
				continue
			}
			report.TasksIn++
		}
	}

	headers := make(map[string]bool)
	for _, out := range output {
		if !out.IsTask() {
			headers[out.Item] = true
		}
	}

	seen := make(map[string]int)
	for i, out := range output {
		row := i + 2 // the header occupies row 1
		if !out.IsTask() {
			report.HeadersOut++
			continue
		}
		report.TasksOut++

		id := types.ParseItem(out.Item)
		parts := id.Parts()

		if id.Level() != 4 {
			report.add(&ValidationError{
				Severity:  SeverityError,
				Item:      out.Item,
				Rule:      "task_level",
				Message:   fmt.Sprintf("task at level %d, expected 4", id.Level()),
				RowNumber: row,
			})
		} else if len(parts[3]) > types.SegmentWidth {
			report.Flattened++
			if len(report.FlattenedSamples) < maxSamples {
				report.FlattenedSamples = append(report.FlattenedSamples, out.Item)
			}
		}

		if first, dup := seen[out.Item]; dup {
			report.add(&ValidationError{
				Severity:  SeverityError,
				Item:      out.Item,
				Rule:      "duplicate_item",
				Message:   fmt.Sprintf("identifier already used by row %d", first),
				RowNumber: row,
			})
		} else {
			seen[out.Item] = row
		}

		if parent := id.Prefix(3); id.Level() > 3 && !headers[parent] {
			report.add(&ValidationError{
				Severity:  SeverityWarning,
				Item:      out.Item,
				Rule:      "missing_parent",
				Message:   fmt.Sprintf("no header row for %s", parent),
				RowNumber: row,
			})
		}
	}

	if report.TasksIn != report.TasksOut {
		report.add(&ValidationError{
			Severity: SeverityError,
			Rule:     "task_count",
			Message:  fmt.Sprintf("task count mismatch: in=%d, out=%d", report.TasksIn, report.TasksOut),
		})
	}

	return report
}

// Summary renders the report counters in the layout printed by the verify
// command.
func (r *Report) Summary() string {
	var b strings.Builder

	status := "PASS"
	if r.TasksIn != r.TasksOut {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "[%s] Task count: in=%d, out=%d\n", status, r.TasksIn, r.TasksOut)
	fmt.Fprintf(&b, "       Headers: in=%d, out=%d\n", r.GroupsIn, r.HeadersOut)
	fmt.Fprintf(&b, "       Flattened items: %d\n", r.Flattened)
	for _, s := range r.FlattenedSamples {
		fmt.Fprintf(&b, "         %s\n", s)
	}
	fmt.Fprintf(&b, "       Findings: %d error(s), %d warning(s)\n", r.ErrorCount, r.WarningCount)
	return b.String()
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// FormatErrors formats findings for display.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes findings to filePath with a timestamped header.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Verification log - %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
