package schema

import "time"

// ScanSession represents a row from the scan_sessions table.
type ScanSession struct {
	ID                        int64
	ScanDate                  time.Time
	ScanDirectory             string
	TotalRepositories         int
	TotalTestClasses          int
	TotalTestMethods          int
	TotalAnnotatedTestMethods int
	TotalTestCaseIDs          int
	DurationMs                int64
	Status                    SessionStatus
	ErrorMessage              *string
}

// Team represents a row from the teams table.
type Team struct {
	ID         int64
	Name       string
	Code       string
	Department string
}

// DailyMetric represents a row from the daily_metrics table.
type DailyMetric struct {
	MetricDate                string // YYYY-MM-DD
	TotalRepositories         int
	TotalTestClasses          int
	TotalTestMethods          int
	TotalAnnotatedTestMethods int
	CoverageRate              float64
	NewTestMethods            int // Delta against the most recent earlier date
	NewAnnotatedTestMethods   int
	ScanSessionID             int64
}

// SessionClassRow is a test_classes row joined with its repository name.
type SessionClassRow struct {
	RepositoryName       string
	ClassName            string
	PackageName          string
	FilePath             string
	TotalTestMethods     int
	AnnotatedTestMethods int
	ScanSessionID        int64
}

// SessionMethodRow is a test_methods row joined with its class and repository.
type SessionMethodRow struct {
	RepositoryName  string
	ClassName       string
	PackageName     string
	MethodName      string
	MethodSignature string
	FilePath        string
	LineNumber      int
	Title           *string
	Author          *string
	Status          *string
	TestCaseIDs     *string // ListDelimiter joined
	ScanSessionID   int64
}

// SkippedRow is a batch row that still failed when executed on its own.
type SkippedRow struct {
	Table string
	Key   string
	Err   error
}

// PersistStats counts rows written by one persistence run.
type PersistStats struct {
	Repositories int
	Teams        int
	Classes      int
	Methods      int
	Batches      int
	Fallbacks    int // Chunks that had to be executed row by row
	Skipped      []SkippedRow
}
