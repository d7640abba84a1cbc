// =============================================================================
// Budget Report - Main Entry Point
// =============================================================================
//
// USAGE:
//   budgetreport report    - Build the realization report from three exports
//   budgetreport merge     - Merge JSON files into one document
//   budgetreport serve     - Serve both pipelines over HTTP
//   budgetreport version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Pipelines, exporters, HTTP server
//   - pkg/utils  : File discovery, loading and output writing
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/budget-report/cmd"
)

func main() {
	cmd.Execute()
}
