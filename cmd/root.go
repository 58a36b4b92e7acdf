// =============================================================================
// Sienge Budget Normalizer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'process', 'serve') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (normalizer)
//   ├── processCmd (normalizer process)
//   ├── serveCmd   (normalizer serve)
//   ├── verifyCmd  (normalizer verify)
//   ├── diffCmd    (normalizer diff)
//   ├── historyCmd (normalizer history)
//   └── versionCmd (normalizer version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Each
//   subcommand loads the main configuration through loadMainConfig so a
//   missing config file still yields a working default setup.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/converter"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "normalizer",
	Short: "Sienge Budget Normalizer - Reshape construction budgets for Sienge import",

	Long: `Sienge Budget Normalizer reads construction budget spreadsheets with a
free-form item hierarchy and rewrites them into the strict four-level layout
the Sienge ERP import expects.

Key Features:
  - Every task is placed at exactly four levels (synthetic headers as needed)
  - Deep hierarchies are flattened without losing a single task
  - Layout profiles per spreadsheet family (sheet, columns, start row)
  - Output verification and row-by-row comparison against a reference
  - Concurrent batch processing with archival and a run history
  - Upload service returning the normalized workbook

Example Usage:
  normalizer process                      # Normalize every file in the input directory
  normalizer process --file obra.xlsx     # Normalize a single file
  normalizer serve --addr :8080           # Start the upload service
  normalizer verify --input obra.xlsx     # Print the verification report`,

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadMainConfig loads the main configuration and builds the logger for it.
// --verbose forces the debug level.
func loadMainConfig() (*config.MainConfig, converter.Logger, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		mainConfig.LogLevel = "debug"
	}
	return mainConfig, converter.NewLogger(mainConfig.LogLevel, os.Stderr), nil
}

// selectProfile loads the layout profiles and picks the one for path.
func selectProfile(mainConfig *config.MainConfig, path, code string) (*config.Profile, error) {
	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load layout profiles: %w", err)
	}
	return config.SelectProfile(path, code, profiles, mainConfig)
}
