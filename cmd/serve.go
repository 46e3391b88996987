package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/internal/httpapi"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long open HTTP requests may take once a signal arrives.
const shutdownTimeout = 10 * time.Second

// serveCmd runs the daemon.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scans on a schedule and serve status and trigger endpoints",
	Long: `Run as a daemon until SIGINT or SIGTERM.

Scans run on the configured schedule (default @daily). A tick that arrives
while a scan is still running is skipped. The HTTP surface offers:
  GET  /healthz  liveness
  GET  /status   scheduler and store status
  POST /scan     start a scan now (202, or 409 when one is running)

Examples:
  # Scan every night at 02:00
  testhub serve --schedule "0 2 * * *"`,
	PreRunE: repoSetup,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := newPipeline()
		if err != nil {
			contract.LogFatal("Cannot set up daemon", err)
		}
		defer p.close()

		if err := p.scheduler.Start(ctx); err != nil {
			p.close()
			contract.LogFatal("Cannot start scheduler", err)
		}

		server := httpapi.New(ctx, p.scheduler, p.store)
		errCh := make(chan error, 1)
		go func() { errCh <- server.Listen(cfg.HTTPAddr) }()

		select {
		case <-ctx.Done():
			contract.LogInfo("Shutting down")
		case err := <-errCh:
			contract.LogError("HTTP server stopped", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			contract.LogWarn("HTTP shutdown", err)
		}
		p.scheduler.Stop()
	},
}
