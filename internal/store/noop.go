package store

import (
	"context"
	"time"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// NoopStore discards everything; it backs dry runs with the none backend.
type NoopStore struct{}

var _ contract.ScanStore = NoopStore{} // Compile-time check

// EnsureSchema implements the Store interface.
func (NoopStore) EnsureSchema(context.Context) error { return nil }

// PersistSummary implements the Store interface.
func (NoopStore) PersistSummary(context.Context, *schema.ScanSummary, time.Duration) (int64, schema.PersistStats, error) {
	return 0, schema.PersistStats{}, nil
}

// RecordFailedSession implements the Store interface.
func (NoopStore) RecordFailedSession(context.Context, string, time.Time, time.Duration, error) (int64, error) {
	return 0, nil
}

// GetStatus implements the Store interface.
func (NoopStore) GetStatus(context.Context) (schema.StoreStatus, error) {
	return schema.StoreStatus{Backend: string(schema.NoneBackend), TableSizes: map[string]int64{}}, nil
}

// Close implements the Store interface.
func (NoopStore) Close() error { return nil }

// ListSessions implements the SessionReader interface.
func (NoopStore) ListSessions(context.Context, int) ([]schema.ScanSession, error) { return nil, nil }

// LatestSession implements the SessionReader interface.
func (NoopStore) LatestSession(context.Context) (*schema.ScanSession, error) { return nil, nil }

// SessionClasses implements the SessionReader interface.
func (NoopStore) SessionClasses(context.Context, int64) ([]schema.SessionClassRow, error) {
	return nil, nil
}

// SessionMethods implements the SessionReader interface.
func (NoopStore) SessionMethods(context.Context, int64) ([]schema.SessionMethodRow, error) {
	return nil, nil
}

// TableCounts implements the SessionReader interface.
func (NoopStore) TableCounts(context.Context) (map[string]int64, error) {
	return map[string]int64{}, nil
}

// DailyMetrics implements the SessionReader interface.
func (NoopStore) DailyMetrics(context.Context, int) ([]schema.DailyMetric, error) { return nil, nil }
