// =============================================================================
// Sienge Budget Normalizer - Verify Command
// =============================================================================
//
// This file defines the 'verify' command. It runs the pipeline on one budget
// in memory and prints the verification report without writing anything.
//
// COMMAND USAGE:
//   normalizer verify --input obra.xlsx [--profile camil] [--sheet Orçamento]
//
// REPORT:
//   - task count in the input against task count in the output
//   - headers in the input against headers in the output
//   - flattened items (first few identifiers listed)
//   - every finding, in output order
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/converter"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/validation"
)

var (
	verifyInput   string
	verifyProfile string
	verifySheet   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Normalize one budget in memory and print the verification report",

	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, logger, err := loadMainConfig()
		if err != nil {
			return err
		}

		profile, err := selectProfile(mainConfig, verifyInput, verifyProfile)
		if err != nil {
			return err
		}
		logger.Debug("Using layout profile %s for %s", profile.ProfileCode, verifyInput)

		rows, err := converter.ReadInput(verifyInput, profile, verifySheet)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		n := converter.NormalizeRows(rows)
		printReport(cmd.OutOrStdout(), n.Report, n.Stats)

		if !n.Report.IsValid() {
			return fmt.Errorf("verification failed with %d errors", n.Report.ErrorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyInput, "input", "", "Budget file to verify")
	verifyCmd.Flags().StringVar(&verifyProfile, "profile", "", "Layout profile code")
	verifyCmd.Flags().StringVar(&verifySheet, "sheet", "", "Worksheet to read, overriding the profile")
	_ = verifyCmd.MarkFlagRequired("input")
}

func printReport(w io.Writer, report *validation.Report, stats converter.Stats) {
	fmt.Fprintln(w, "=== Verification Report ===")
	fmt.Fprint(w, report.Summary())
	fmt.Fprintf(w, "       Synthetic headers: %d, renumbered: %d\n", stats.SyntheticHeaders, stats.Renumbered)

	if len(report.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, validation.FormatErrors(report.Errors))
	}
}
