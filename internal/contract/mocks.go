package contract

import (
	"context"
	"time"

	"github.com/huangsam/testhub/schema"
	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// Clone implements the GitClient interface.
func (m *MockGitClient) Clone(ctx context.Context, url, dest string, auth GitAuth) error {
	return m.Called(ctx, url, dest, auth).Error(0)
}

// Pull implements the GitClient interface.
func (m *MockGitClient) Pull(ctx context.Context, repoPath string, auth GitAuth) error {
	return m.Called(ctx, repoPath, auth).Error(0)
}

// MockHubSyncer is a mock implementation of HubSyncer for testing.
type MockHubSyncer struct {
	mock.Mock
}

var _ HubSyncer = &MockHubSyncer{} // Compile-time check

// EnsureHub implements the HubSyncer interface.
func (m *MockHubSyncer) EnsureHub() error {
	return m.Called().Error(0)
}

// SyncAll implements the HubSyncer interface.
func (m *MockHubSyncer) SyncAll(ctx context.Context, specs []RepositorySpec) schema.SyncReport {
	report, _ := m.Called(ctx, specs).Get(0).(schema.SyncReport)
	return report
}

// Release implements the HubSyncer interface.
func (m *MockHubSyncer) Release(name string) error {
	return m.Called(name).Error(0)
}

// MockScanner is a mock implementation of Scanner for testing.
type MockScanner struct {
	mock.Mock
}

var _ Scanner = &MockScanner{} // Compile-time check

// Scan implements the Scanner interface.
func (m *MockScanner) Scan(ctx context.Context, root string) (*schema.ScanSummary, error) {
	ret := m.Called(ctx, root)
	summary, _ := ret.Get(0).(*schema.ScanSummary)
	return summary, ret.Error(1)
}

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	mock.Mock
}

var _ ScanStore = &MockStore{} // Compile-time check

// EnsureSchema implements the Store interface.
func (m *MockStore) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// PersistSummary implements the Store interface.
func (m *MockStore) PersistSummary(ctx context.Context, summary *schema.ScanSummary, duration time.Duration) (int64, schema.PersistStats, error) {
	ret := m.Called(ctx, summary, duration)
	stats, _ := ret.Get(1).(schema.PersistStats)
	return ret.Get(0).(int64), stats, ret.Error(2)
}

// RecordFailedSession implements the Store interface.
func (m *MockStore) RecordFailedSession(ctx context.Context, scanDir string, started time.Time, duration time.Duration, cause error) (int64, error) {
	ret := m.Called(ctx, scanDir, started, duration, cause)
	return ret.Get(0).(int64), ret.Error(1)
}

// GetStatus implements the Store interface.
func (m *MockStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	ret := m.Called(ctx)
	status, _ := ret.Get(0).(schema.StoreStatus)
	return status, ret.Error(1)
}

// Close implements the Store interface.
func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

// ListSessions implements the SessionReader interface.
func (m *MockStore) ListSessions(ctx context.Context, limit int) ([]schema.ScanSession, error) {
	ret := m.Called(ctx, limit)
	sessions, _ := ret.Get(0).([]schema.ScanSession)
	return sessions, ret.Error(1)
}

// LatestSession implements the SessionReader interface.
func (m *MockStore) LatestSession(ctx context.Context) (*schema.ScanSession, error) {
	ret := m.Called(ctx)
	session, _ := ret.Get(0).(*schema.ScanSession)
	return session, ret.Error(1)
}

// SessionClasses implements the SessionReader interface.
func (m *MockStore) SessionClasses(ctx context.Context, sessionID int64) ([]schema.SessionClassRow, error) {
	ret := m.Called(ctx, sessionID)
	rows, _ := ret.Get(0).([]schema.SessionClassRow)
	return rows, ret.Error(1)
}

// SessionMethods implements the SessionReader interface.
func (m *MockStore) SessionMethods(ctx context.Context, sessionID int64) ([]schema.SessionMethodRow, error) {
	ret := m.Called(ctx, sessionID)
	rows, _ := ret.Get(0).([]schema.SessionMethodRow)
	return rows, ret.Error(1)
}

// TableCounts implements the SessionReader interface.
func (m *MockStore) TableCounts(ctx context.Context) (map[string]int64, error) {
	ret := m.Called(ctx)
	counts, _ := ret.Get(0).(map[string]int64)
	return counts, ret.Error(1)
}

// DailyMetrics implements the SessionReader interface.
func (m *MockStore) DailyMetrics(ctx context.Context, limit int) ([]schema.DailyMetric, error) {
	ret := m.Called(ctx, limit)
	metrics, _ := ret.Get(0).([]schema.DailyMetric)
	return metrics, ret.Error(1)
}

// MockReporter is a mock implementation of Reporter for testing.
type MockReporter struct {
	mock.Mock
}

var _ Reporter = &MockReporter{} // Compile-time check

// Generate implements the Reporter interface.
func (m *MockReporter) Generate(ctx context.Context, sessionID int64, summary *schema.ScanSummary) ([]string, error) {
	ret := m.Called(ctx, sessionID, summary)
	paths, _ := ret.Get(0).([]string)
	return paths, ret.Error(1)
}
