package schema

import "time"

// SyncOutcome is the result of synchronizing one repository.
type SyncOutcome struct {
	Name     string
	Cloned   bool // false means an existing checkout was pulled
	Attempts int
	Duration time.Duration
	Err      error
}

// SyncReport aggregates one hub synchronization pass.
// Err is nil when every repository synced, otherwise it lists every failure.
type SyncReport struct {
	Outcomes  []SyncOutcome
	Succeeded int
	Failed    int
	Err       error
}

// SyncedNames returns the names of the repositories that synced successfully.
func (r SyncReport) SyncedNames() []string {
	names := make([]string, 0, r.Succeeded)
	for _, o := range r.Outcomes {
		if o.Err == nil {
			names = append(names, o.Name)
		}
	}
	return names
}
