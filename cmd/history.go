// =============================================================================
// Sienge Budget Normalizer - History Command
// =============================================================================
//
// COMMAND USAGE:
//   normalizer history [--limit 20]
//
// Lists the most recent runs recorded by 'process', newest first.
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent processing runs",

	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, _, err := loadMainConfig()
		if err != nil {
			return err
		}

		db, err := storage.Open(mainConfig.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history ledger: %w", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tFILE\tPROFILE\tSTATUS\tTASKS\tFLATTENED\tDURATION")
		for _, r := range runs {
			status := "ok"
			if !r.Success {
				status = "failed: " + r.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				filepath.Base(r.InputFile),
				r.Profile,
				status,
				r.Counts["tasks"],
				r.Counts["flattened"],
				r.Duration,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
}
