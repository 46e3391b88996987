package cmd

import (
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// migrateCmd runs schema migrations.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the store schema to a version",
	Long: `Apply or roll back the embedded schema migrations.

Scans migrate to the latest version on their own; use this command to
prepare a database ahead of time or to roll back.

Examples:
  # Migrate to latest
  testhub migrate

  # Roll back everything
  testhub migrate --target-version 0`,
	PreRunE: sharedSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		target := viper.GetInt("target-version")
		res, err := store.Migrate(cfg.DBBackend, cfg.DBConnect, target)
		if err != nil {
			contract.LogFatal("Migration failed", err)
		}
		if !res.Changed {
			cmd.Printf("Schema already at version %d\n", res.To)
			return
		}
		cmd.Printf("Migrated schema from version %d to %d\n", res.From, res.To)
	},
}
