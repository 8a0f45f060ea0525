package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the winners table",
	Long:  `Creates WINNERS_TABLE and its expiry index if they do not exist. Safe to re-run.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.db.Migrate(ctx, a.winnerStore().Migration()); err != nil {
		return err
	}

	a.log.WithField("table", a.cfg.Store.Table).Info("Schema is up to date")
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s ready\n", a.cfg.Store.Table)
	return nil
}
