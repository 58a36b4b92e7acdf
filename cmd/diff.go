// =============================================================================
// Sienge Budget Normalizer - Diff Command
// =============================================================================
//
// This file defines the 'diff' command. It compares a normalized workbook
// with a reference workbook (for instance one fixed by hand and accepted by
// Sienge) row by row.
//
// COMMAND USAGE:
//   normalizer diff --reference ref.xlsx --output out.xlsx [--skip-row 12 ...]
//
// RULES:
//   - item identifiers must match exactly
//   - quantities present on both sides must agree within --tolerance
//   - --skip-row names reference sheet rows with no counterpart in the output
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/validation"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/xlsxwriter"
)

var (
	diffReference string
	diffOutput    string
	diffSkipRows  []int
	diffTolerance float64
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare a normalized workbook with a reference workbook",

	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := xlsxwriter.ReadAllFile(diffReference)
		if err != nil {
			return fmt.Errorf("failed to read reference: %w", err)
		}
		out, err := xlsxwriter.ReadAllFile(diffOutput)
		if err != nil {
			return fmt.Errorf("failed to read output: %w", err)
		}

		opts := validation.CompareOptions{
			SkipRows:          make(map[int]bool, len(diffSkipRows)),
			QuantityTolerance: diffTolerance,
		}
		for _, row := range diffSkipRows {
			opts.SkipRows[row] = true
		}

		w := cmd.OutOrStdout()
		diffs := validation.Compare(ref, out, opts)
		fmt.Fprintf(w, "Reference rows: %d, output rows: %d\n", len(ref), len(out))

		if len(diffs) == 0 {
			fmt.Fprintln(w, "[PASS] Workbooks match.")
			return nil
		}

		fmt.Fprint(w, validation.FormatErrors(diffs))
		for _, d := range diffs {
			if d.Severity == validation.SeverityError {
				return fmt.Errorf("workbooks differ")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVar(&diffReference, "reference", "", "Reference workbook")
	diffCmd.Flags().StringVar(&diffOutput, "output", "", "Normalized workbook to check")
	diffCmd.Flags().IntSliceVar(&diffSkipRows, "skip-row", nil, "Reference sheet row to skip (repeatable)")
	diffCmd.Flags().Float64Var(&diffTolerance, "tolerance", validation.DefaultQuantityTolerance, "Accepted quantity difference")
	_ = diffCmd.MarkFlagRequired("reference")
	_ = diffCmd.MarkFlagRequired("output")
}
