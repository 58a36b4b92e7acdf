// =============================================================================
// Sienge Budget Normalizer - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   normalizer serve [--addr :8080]
//
// ENDPOINTS:
//   GET  /healthz        : liveness probe
//   POST /api/sheets     : list the worksheets of an uploaded workbook
//   POST /api/normalize  : upload a budget, download planilha_final.xlsx
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload service",
	Long: `Start an HTTP service that normalizes uploaded budget workbooks.

Column positions default to default_columns from the main configuration and
can be overridden per request with the item_col, desc_col, code_col,
unit_col, price_col, qty_col and start_row form fields.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, logger, err := loadMainConfig()
		if err != nil {
			return err
		}

		defaults, err := mainConfig.DefaultColumns.Resolve()
		if err != nil {
			return fmt.Errorf("invalid default_columns: %w", err)
		}

		addr := serveAddr
		if addr == "" {
			addr = mainConfig.Server.Addr
		}

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		r := server.Setup(defaults, mainConfig.Server.MaxUploadMB, logger)

		logger.Info("Upload service listening on %s", addr)
		if err := r.Run(addr); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
}
