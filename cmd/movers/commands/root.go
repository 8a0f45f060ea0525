package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "movers",
	Short: "Daily top mover pipeline",
	Long: `Top mover pipeline CLI

Picks the watchlist ticker with the largest absolute open-to-close move
for each trading day and stores one winner per day.

Usage:
  go run ./cmd/movers [command]

Examples:
  go run ./cmd/movers migrate
  go run ./cmd/movers ingest
  go run ./cmd/movers ingest --date 2024-06-11
  go run ./cmd/movers ingest --mode backfill --start 2024-01-01 --end 2024-03-31
  go run ./cmd/movers api
  go run ./cmd/movers scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
