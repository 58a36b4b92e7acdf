// =============================================================================
// Sienge Budget Normalizer - Main Entry Point
// =============================================================================
//
// USAGE:
//   normalizer process   - Normalize every budget in the input directory
//   normalizer serve     - Start the upload service
//   normalizer verify    - Print the verification report for one budget
//   normalizer diff      - Compare a normalized workbook with a reference
//   normalizer history   - List recent runs
//   normalizer version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core business logic (not for external import)
//   - pkg/       : Shared utilities
//   - profiles/  : Layout profiles, one YAML file per spreadsheet family
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sienge-budget-normalizer/cmd"
)

func main() {
	cmd.Execute()
}
