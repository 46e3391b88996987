package cmd

import (
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/internal/gitclient"
	"github.com/huangsam/testhub/internal/outwriter"
	"github.com/spf13/cobra"
)

// syncCmd clones or pulls every configured repository without scanning.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or pull every configured repository into the hub",
	Long: `Bring the hub up to date without scanning or touching the store.

Each repository is retried with exponential backoff. The command exits
non-zero when any repository could not be synced.

Examples:
  testhub sync --hub-path /data/hub`,
	PreRunE: repoSetup,
	Run: func(_ *cobra.Command, _ []string) {
		hub := gitclient.NewHubManagerFromConfig(cfg, contract.NewLocalGitClient())
		if err := hub.EnsureHub(); err != nil {
			contract.LogFatal("Cannot prepare hub", err)
		}
		report := hub.SyncAll(rootCtx, cfg.Repositories)
		if err := outwriter.NewOutWriter().WriteSync(report, cfg); err != nil {
			contract.LogError("Cannot write sync output", err)
		}
		if report.Err != nil {
			contract.LogFatal("Some repositories failed to sync", report.Err)
		}
	},
}
