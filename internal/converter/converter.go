// =============================================================================
// Sienge Budget Normalizer - Converter Module
// =============================================================================
//
// This module orchestrates the normalization of a single budget file, from
// reading the source sheet to writing the Sienge import workbook.
//
// CONVERSION PIPELINE:
//   1. Read the budget rows (xlsx or csv, per the layout profile)
//   2. Classify each row as a header or a task
//   3. Normalize the hierarchy so every task sits at level 4
//   4. Verify the output against the input
//   5. Write the output workbook
//   6. Archive the processed files
//   7. Record the run in the history ledger
//
// CONCURRENCY:
//   A Converter processes one file and shares no state with other
//   Converters, so the process command runs several of them at once.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/csvparser"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/storage"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/types"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/validation"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/xlsxparser"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/xlsxwriter"
	"github.com/ginjaninja78/sienge-budget-normalizer/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated workbook.
	// This is empty if processing failed or was a dry run.
	OutputFile string

	// Profile is the code of the layout profile used.
	Profile string

	// TraceID identifies the run in the history ledger.
	TraceID string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats

	// Report is the verification report, nil if the file never got that far.
	Report *validation.Report
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of source rows from the start row on.
	RowsRead int

	// OutputRows is the number of rows written, headers included.
	OutputRows int

	// Normalization holds the hierarchy normalizer counters.
	Normalization Stats

	// ValidationErrors and ValidationWarnings count verification findings.
	ValidationErrors   int
	ValidationWarnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// Counts flattens the statistics for the history ledger.
func (s ProcessingStats) Counts() map[string]int {
	return map[string]int{
		"rows_read":           s.RowsRead,
		"output_rows":         s.OutputRows,
		"groups":              s.Normalization.Groups,
		"tasks":               s.Normalization.Tasks,
		"synthetic_headers":   s.Normalization.SyntheticHeaders,
		"renumbered":          s.Normalization.Renumbered,
		"flattened":           s.Normalization.Flattened,
		"root_tasks":          s.Normalization.RootTasks,
		"validation_errors":   s.ValidationErrors,
		"validation_warnings": s.ValidationWarnings,
	}
}

// =============================================================================
// IN-MEMORY PIPELINE
// =============================================================================

// Normalized is the outcome of running the core over a set of source rows.
type Normalized struct {
	Records []types.Record
	Output  []types.OutputRecord
	Stats   Stats
	Report  *validation.Report
}

// NormalizeRows classifies, normalizes and verifies source rows.
func NormalizeRows(rows []types.RawRow) Normalized {
	records := ClassifyAll(rows)
	output, stats := NormalizeReport(records)
	return Normalized{
		Records: records,
		Output:  output,
		Stats:   stats,
		Report:  validation.Verify(records, output),
	}
}

// ConvertStream reads an xlsx budget from r and writes the normalized
// workbook to w. It is the whole pipeline without files, profiles or
// archival, as used by the upload service.
func ConvertStream(r io.Reader, w io.Writer, sheet string, m config.ColumnMapping) (Normalized, error) {
	rows, err := xlsxparser.ReadRows(r, sheet, m)
	if err != nil {
		return Normalized{}, err
	}

	n := NormalizeRows(rows)
	if err := xlsxwriter.Write(w, n.Output); err != nil {
		return n, fmt.Errorf("failed to write output: %w", err)
	}
	return n, nil
}

// ReadInput reads the budget rows of a file using the layout profile. The
// format is chosen by extension; sheet overrides the profile's sheet.
func ReadInput(path string, profile *config.Profile, sheet string) ([]types.RawRow, error) {
	mapping, err := profile.Columns.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid columns in profile %s: %w", profile.ProfileCode, err)
	}
	if sheet == "" {
		sheet = profile.SheetName
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvparser.ReadFile(path, profile.CSVSettings, mapping)
	case ".xlsx", ".xlsm":
		return xlsxparser.ReadFile(path, sheet, mapping)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", filepath.Base(path))
	}
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the normalization of a single budget file.
type Converter struct {
	path       string
	profile    *config.Profile
	mainConfig *config.MainConfig

	sheet   string
	dryRun  bool
	files   *utils.FileManager
	history *storage.DB
	logger  Logger
}

// New creates a Converter for one input file.
func New(path string, profile *config.Profile, mainConfig *config.MainConfig) *Converter {
	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
	files.ArchiveOnSuccess = !mainConfig.KeepInput

	return &Converter{
		path:       path,
		profile:    profile,
		mainConfig: mainConfig,
		files:      files,
		logger:     NewLogger(mainConfig.LogLevel, io.Discard),
	}
}

// WithLogger sets the logger.
func (c *Converter) WithLogger(l Logger) *Converter {
	c.logger = l
	return c
}

// WithHistory records every run in db.
func (c *Converter) WithHistory(db *storage.DB) *Converter {
	c.history = db
	return c
}

// WithSheet overrides the profile's sheet.
func (c *Converter) WithSheet(sheet string) *Converter {
	c.sheet = sheet
	return c
}

// WithDryRun skips writing, archiving and recording.
func (c *Converter) WithDryRun(dryRun bool) *Converter {
	c.dryRun = dryRun
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file. Failures are reported in the
// Result, never returned.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{
		FilePath: c.path,
		Profile:  c.profile.ProfileCode,
		TraceID:  uuid.NewString(),
	}

	c.run(ctx, &result)

	result.Stats.ProcessingTime = time.Since(startTime)
	if !c.dryRun {
		c.record(ctx, result, startTime)
	}
	return result
}

func (c *Converter) run(ctx context.Context, result *Result) {
	if err := ctx.Err(); err != nil {
		result.Error = err
		return
	}

	c.logger.Info("Processing file: %s (profile %s)", c.path, c.profile.ProfileCode)

	// =========================================================================
	// STEP 1: READ BUDGET ROWS
	// =========================================================================

	rows, err := ReadInput(c.path, c.profile, c.sheet)
	if err != nil {
		result.Error = fmt.Errorf("failed to read input: %w", err)
		return
	}
	result.Stats.RowsRead = len(rows)
	c.logger.Debug("Read %d rows", len(rows))

	// =========================================================================
	// STEPS 2-4: CLASSIFY, NORMALIZE, VERIFY
	// =========================================================================

	n := NormalizeRows(rows)
	result.Stats.Normalization = n.Stats
	result.Stats.OutputRows = len(n.Output)
	result.Stats.ValidationErrors = n.Report.ErrorCount
	result.Stats.ValidationWarnings = n.Report.WarningCount
	result.Report = n.Report

	c.logger.Debug("Normalized %d tasks: %d synthetic headers, %d renumbered, %d flattened",
		n.Stats.Tasks, n.Stats.SyntheticHeaders, n.Stats.Renumbered, n.Stats.Flattened)

	for _, ve := range n.Report.Errors {
		if ve.Severity == validation.SeverityError {
			c.logger.Warn("Verification: %s", ve.Error())
		} else {
			c.logger.Debug("Verification: %s", ve.Error())
		}
	}

	if !n.Report.IsValid() && !c.mainConfig.ShouldContinueOnError() {
		result.Error = fmt.Errorf("verification failed with %d errors", n.Report.ErrorCount)
		return
	}

	if c.dryRun {
		result.Success = true
		return
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUT
	// =========================================================================

	if err := ctx.Err(); err != nil {
		result.Error = err
		return
	}

	outputPath := filepath.Join(c.mainConfig.OutputDir, c.outputFileName())
	if err := xlsxwriter.SaveFile(outputPath, n.Output); err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return
	}
	result.OutputFile = outputPath
	c.logger.Info("Wrote output to: %s", outputPath)

	// =========================================================================
	// STEP 6: ARCHIVE FILES
	// =========================================================================

	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		c.logger.Warn("Failed to archive output: %v", err)
	}
	if _, err := c.files.ArchiveInputFile(c.path); err != nil {
		c.logger.Warn("Failed to archive input: %v", err)
	}

	result.Success = true
}

// record writes the run to the history ledger. Ledger failures are logged
// and do not change the result.
func (c *Converter) record(ctx context.Context, result Result, startTime time.Time) {
	if c.history == nil {
		return
	}

	run := storage.Run{
		TraceID:    result.TraceID,
		InputFile:  result.FilePath,
		OutputFile: result.OutputFile,
		Profile:    result.Profile,
		Success:    result.Success,
		Counts:     result.Stats.Counts(),
		Duration:   result.Stats.ProcessingTime,
		StartedAt:  startTime,
	}
	if result.Error != nil {
		run.Error = result.Error.Error()
	}

	if _, err := c.history.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		c.logger.Warn("Failed to record run %s: %v", result.TraceID, err)
	}
}

func (c *Converter) outputFileName() string {
	original := strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path))
	return utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{
		"original": original,
		"profile":  c.profile.ProfileCode,
	})
}
