package cmd

import (
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/internal/outwriter"
	"github.com/spf13/cobra"
)

// scanCmd runs one sync, scan and persist pass.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sync the hub, scan every repository and record the session",
	Long: `Run one full pass: clone or pull every configured repository, scan their
Java test sources for test case annotations and persist the result as a new
scan session.

A repository that fails to sync is skipped; whatever is already checked out
is still scanned. A failed scan exits non-zero without touching the store;
a failed persistence exits non-zero and leaves a failed session row behind.

Examples:
  # Scan the repositories listed in .testhub.yaml
  testhub scan

  # Scan one extra repository into a MySQL store
  TESTHUB_DB_BACKEND=mysql TESTHUB_DB_CONNECT="..." testhub scan --repo https://git.example.com/qa/shop.git`,
	PreRunE: repoSetup,
	Run: func(_ *cobra.Command, _ []string) {
		p, err := newPipeline()
		if err != nil {
			contract.LogFatal("Cannot set up scan", err)
		}
		defer p.close()

		res, err := p.scheduler.RunScan(rootCtx)
		if err != nil {
			p.close()
			contract.LogFatal("Scan failed", err)
		}
		view := outwriter.ScanView{
			SessionID: res.SessionID,
			Summary:   res.Summary,
			Sync:      res.Sync,
			Persist:   res.Persist,
			Reports:   res.Reports,
			Duration:  res.Duration,
		}
		if err := outwriter.NewOutWriter().WriteScan(view, cfg); err != nil {
			contract.LogError("Cannot write scan output", err)
		}
	},
}
