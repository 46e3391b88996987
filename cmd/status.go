package cmd

import (
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/internal/outwriter"
	"github.com/huangsam/testhub/internal/store"
	"github.com/spf13/cobra"
)

// statusCmd shows recent sessions and store statistics.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent scan sessions, table sizes and daily metrics",
	Long: `Display what the store holds.

Shows:
- Backend type and connection status
- Row count of every table
- The most recent scan sessions, failed ones included
- Daily metrics with the change against the previous day

Examples:
  testhub status --limit 20
  testhub status --output json`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		st, err := store.New(cfg)
		if err != nil {
			contract.LogFatal("Cannot open store", err)
		}
		defer func() { _ = st.Close() }()

		var view outwriter.StatusView
		if view.Store, err = st.GetStatus(rootCtx); err != nil {
			contract.LogWarn("Store status incomplete", err)
		}
		if view.Sessions, err = st.ListSessions(rootCtx, cfg.Limit); err != nil {
			contract.LogWarn("Cannot list sessions", err)
		}
		if view.Metrics, err = st.DailyMetrics(rootCtx, cfg.Limit); err != nil {
			contract.LogWarn("Cannot read daily metrics", err)
		}
		if err := outwriter.NewOutWriter().WriteStatus(view, cfg); err != nil {
			contract.LogError("Cannot write status output", err)
		}
	},
}
