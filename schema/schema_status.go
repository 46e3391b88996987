package schema

import "time"

// StoreStatus represents the status of the scan store.
type StoreStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalSessions int              `json:"total_sessions"`
	LastSessionID int64            `json:"last_session_id"`
	LastScanTime  time.Time        `json:"last_scan_time"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// RunSnapshot is a point-in-time view of the scheduler for external inspection.
type RunSnapshot struct {
	Running       bool      `json:"running"`
	Status        RunStatus `json:"status"`
	LastRunTime   time.Time `json:"last_run_time"`
	LastError     string    `json:"last_error,omitempty"`
	LastSessionID int64     `json:"last_session_id"`
	Schedule      string    `json:"schedule"`
	NextRunTime   time.Time `json:"next_run_time"`
}
