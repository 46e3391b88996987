// Package contract provides interfaces and shared utilities for testhub's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/testhub/schema"
)

// GitAuth selects how git authenticates against a remote.
// Precedence: SSH key, then username/password, then anonymous.
type GitAuth struct {
	Username   string
	Password   string
	SSHKeyPath string
}

// Auth modes reported by GitAuth.Mode.
const (
	AuthSSH       = "ssh"
	AuthBasic     = "basic"
	AuthAnonymous = "anonymous"
)

// Mode returns the authentication mode that will be used.
func (a GitAuth) Mode() string {
	switch {
	case a.SSHKeyPath != "":
		return AuthSSH
	case a.Username != "":
		return AuthBasic
	default:
		return AuthAnonymous
	}
}

// GitClient defines the git operations the hub needs.
// This allows the hub logic to be tested without a real git executable.
type GitClient interface {
	// Run executes a git command in repoPath and returns its output.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// Clone creates a fresh checkout of url at dest.
	Clone(ctx context.Context, url, dest string, auth GitAuth) error

	// Pull fast-forwards an existing checkout.
	Pull(ctx context.Context, repoPath string, auth GitAuth) error
}

// HubSyncer keeps the local hub of checkouts in step with the configured remotes.
type HubSyncer interface {
	EnsureHub() error
	SyncAll(ctx context.Context, specs []RepositorySpec) schema.SyncReport
	Release(name string) error
}

// Scanner walks a hub and builds the scan summary.
type Scanner interface {
	Scan(ctx context.Context, root string) (*schema.ScanSummary, error)
}

// Store persists scan summaries.
type Store interface {
	// EnsureSchema creates or upgrades the tables.
	EnsureSchema(ctx context.Context) error

	// PersistSummary writes one scan session and everything it found in a single transaction.
	PersistSummary(ctx context.Context, summary *schema.ScanSummary, duration time.Duration) (int64, schema.PersistStats, error)

	// RecordFailedSession writes a failed session row on a best-effort basis.
	RecordFailedSession(ctx context.Context, scanDir string, started time.Time, duration time.Duration, cause error) (int64, error)

	// GetStatus returns status information about the store
	GetStatus(ctx context.Context) (schema.StoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// SessionReader exposes persisted sessions for status output and reports.
type SessionReader interface {
	ListSessions(ctx context.Context, limit int) ([]schema.ScanSession, error)
	LatestSession(ctx context.Context) (*schema.ScanSession, error)
	SessionClasses(ctx context.Context, sessionID int64) ([]schema.SessionClassRow, error)
	SessionMethods(ctx context.Context, sessionID int64) ([]schema.SessionMethodRow, error)
	TableCounts(ctx context.Context) (map[string]int64, error)
	DailyMetrics(ctx context.Context, limit int) ([]schema.DailyMetric, error)
}

// ScanStore is a Store that can also read back what it persisted.
type ScanStore interface {
	Store
	SessionReader
}

// Reporter produces downstream artifacts for a persisted session.
// It returns the paths or object keys it wrote.
type Reporter interface {
	Generate(ctx context.Context, sessionID int64, summary *schema.ScanSummary) ([]string, error)
}
