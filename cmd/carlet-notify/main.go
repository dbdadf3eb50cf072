// Command carlet-notify runs the report notification worker and its
// maintenance tools.
//
// Usage:
//
//	carlet-notify worker
//	carlet-notify sweep
//	carlet-notify inject-report --reporter-id uid123 --lat 1.23 --lng 4.56 --license-plate "abc 123"
//	carlet-notify resolve-report --id <report-id>
//	carlet-notify seed-user --id uid456 --token <device-token> --car-plate ABC123
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "carlet-notify",
		Short:        "Report notification fan-out worker",
		SilenceUsage: true,
	}

	root.AddCommand(workerCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(injectReportCmd())
	root.AddCommand(resolveReportCmd())
	root.AddCommand(seedUserCmd())
	root.AddCommand(migrateCmd())
	return root
}
