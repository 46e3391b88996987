// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// ScanView is everything a finished scan run reports.
type ScanView struct {
	SessionID int64
	Summary   *schema.ScanSummary
	Sync      schema.SyncReport
	Persist   schema.PersistStats
	Reports   []string
	Duration  time.Duration
}

// StatusView is everything the status command reports. Scheduler is nil outside the daemon.
type StatusView struct {
	Store     schema.StoreStatus
	Sessions  []schema.ScanSession
	Metrics   []schema.DailyMetric
	Scheduler *schema.RunSnapshot
}

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteScan prints a finished scan using the configured output format.
func (ow *OutWriter) WriteScan(view ScanView, cfg *contract.Config) error {
	return WriteScanResult(view, cfg)
}

// WriteSync prints a hub synchronization pass using the configured output format.
func (ow *OutWriter) WriteSync(report schema.SyncReport, cfg *contract.Config) error {
	return WriteSyncReport(report, cfg)
}

// WriteStatus prints store and session status using the configured output format.
func (ow *OutWriter) WriteStatus(view StatusView, cfg *contract.Config) error {
	return WriteStatusView(view, cfg)
}
