// =============================================================================
// Sienge Budget Normalizer - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch entry point. It
// normalizes every budget found in the input directory.
//
// COMMAND USAGE:
//   normalizer process [flags]
//
// FLAGS:
//   --dry-run  : Normalize and verify without writing or archiving
//   --file     : Process only this file instead of the input directory
//   --profile  : Force a layout profile instead of matching by file name
//   --sheet    : Override the worksheet of the layout profile
//
// PROCESSING PIPELINE:
//   1. Load the main configuration and the layout profiles
//   2. Discover budgets (*.xlsx, *.csv) in the input directory
//   3. Match each file to a layout profile
//   4. Normalize the files concurrently, at most max_concurrency at a time
//   5. Record every run in the history ledger
//   6. Print and write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/converter"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/storage"
	"github.com/ginjaninja78/sienge-budget-normalizer/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun      bool
	filePath    string
	profileCode string
	sheetName   string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Normalize budget spreadsheets for Sienge import",
	Long: `The process command scans the input directory for budget spreadsheets,
matches each one to a layout profile and rewrites its item hierarchy into the
four-level Sienge layout.

Files are processed concurrently. A failing file never stops the others.

On successful processing:
  - The normalized workbook is placed in the output directory
  - A copy goes to the output archive
  - The original budget is moved to the input archive (unless keep_input)

On error:
  - The original budget remains in the input directory
  - The failure is listed in the summary report`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Normalize and verify without writing output files")
	processCmd.Flags().StringVar(&filePath, "file", "", "Process only this file")
	processCmd.Flags().StringVar(&profileCode, "profile", "", "Layout profile code to use for every file")
	processCmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet to read, overriding the profile")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== Sienge Budget Normalizer ===")
	fmt.Println("Loading configuration...")

	mainConfig, logger, err := loadMainConfig()
	if err != nil {
		return err
	}

	if err := mainConfig.EnsureDirectories(); err != nil {
		return err
	}

	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load layout profiles: %w", err)
	}
	fmt.Printf("Loaded %d layout profile(s)\n", len(profiles))

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
		inputFiles, err = fm.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Println("No budget files found in the input directory.")
		return nil
	}
	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: OPEN THE HISTORY LEDGER
	// =========================================================================

	var history *storage.DB
	if !dryRun {
		history, err = storage.Open(mainConfig.HistoryDB)
		if err != nil {
			logger.Warn("History ledger unavailable (%s): %v", mainConfig.HistoryDB, err)
		} else {
			defer history.Close()
		}
	}

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================

	fmt.Println("Processing files...")

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(inputFiles))
	sem := make(chan struct{}, mainConfig.MaxConcurrency)

	for _, file := range inputFiles {
		wg.Add(1)

		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			profile, err := config.SelectProfile(path, profileCode, profiles, mainConfig)
			if err != nil {
				results <- converter.Result{FilePath: path, Error: err}
				return
			}

			conv := converter.New(path, profile, mainConfig).
				WithLogger(logger).
				WithSheet(sheetName).
				WithDryRun(dryRun)
			if history != nil {
				conv = conv.WithHistory(history)
			}
			results <- conv.Run(ctx)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 5: COLLECT RESULTS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}

	for result := range results {
		name := filepath.Base(result.FilePath)
		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: fmt.Sprint(result.Error),
			})
			fmt.Printf("  ✗ %s: %v\n", name, result.Error)
			continue
		}

		stats := result.Stats
		summary.SuccessfulFiles++
		summary.TotalRows += stats.RowsRead
		summary.TotalTasks += stats.Normalization.Tasks
		summary.SyntheticHeaders += stats.Normalization.SyntheticHeaders
		summary.Flattened += stats.Normalization.Flattened
		summary.ValidationErrors += stats.ValidationErrors
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   result.FilePath,
			OutputFile:  result.OutputFile,
			Profile:     result.Profile,
			Rows:        stats.RowsRead,
			Tasks:       stats.Normalization.Tasks,
			ProcessTime: stats.ProcessingTime,
		})

		target := result.OutputFile
		if dryRun {
			target = "(dry run)"
		}
		fmt.Printf("  ✓ %s -> %s (%d tasks, %d flattened)\n", name, target, stats.Normalization.Tasks, stats.Normalization.Flattened)
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 6: PRINT SUMMARY
	// =========================================================================

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:       %d\n", summary.TotalFiles)
	fmt.Printf("Successful:        %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:            %d\n", summary.FailedFiles)
	fmt.Printf("Tasks:             %d\n", summary.TotalTasks)
	fmt.Printf("Synthetic headers: %d\n", summary.SyntheticHeaders)
	fmt.Printf("Flattened:         %d\n", summary.Flattened)
	fmt.Printf("Time elapsed:      %s\n", summary.EndTime.Sub(startTime))

	if !dryRun {
		path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir)
		if err != nil {
			logger.Warn("Failed to write summary log: %v", err)
		} else {
			fmt.Printf("\nSummary written to %s\n", path)
		}
	}

	return nil
}
