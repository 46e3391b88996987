package schema

// Custom string types for type safety.
type (
	// DatabaseBackend represents the database backend for scan persistence.
	DatabaseBackend string

	// SessionStatus represents the persisted status of a scan session.
	SessionStatus string

	// RunStatus represents the in-memory status of the last scheduler run.
	RunStatus string

	// OutputMode represents the format of the status output.
	OutputMode string
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All session statuses written to scan_sessions.
const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// All run statuses tracked by the scheduler.
const (
	RunNever   RunStatus = "never-run"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunError   RunStatus = "error" // panic or unexpected failure
)

// All output modes supported by the status command.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// DefaultAnnotationStatus is the status of a rich annotation that does not set one.
const DefaultAnnotationStatus = "TODO"

// ListDelimiter separates array tokens in single-column storage.
// Extraction strips it from every token, so it never appears inside one.
const ListDelimiter = "\x1f"

// Table names of the persisted schema.
const (
	ScanSessionsTable = "scan_sessions"
	TeamsTable        = "teams"
	RepositoriesTable = "repositories"
	TestClassesTable  = "test_classes"
	TestMethodsTable  = "test_methods"
	DailyMetricsTable = "daily_metrics"
)

// AllTables lists every persisted table in dependency order.
var AllTables = []string{
	ScanSessionsTable,
	TeamsTable,
	RepositoriesTable,
	TestClassesTable,
	TestMethodsTable,
	DailyMetricsTable,
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
}
