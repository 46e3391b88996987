// Package scheduler runs the sync, scan and persist pipeline, one run at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
	"github.com/robfig/cron/v3"
)

// Deps are the components a run drives. Reporter may be nil.
type Deps struct {
	Hub      contract.HubSyncer
	Scanner  contract.Scanner
	Store    contract.Store
	Reporter contract.Reporter
}

// Options describe what a run works on.
type Options struct {
	Repositories []contract.RepositorySpec
	HubPath      string
	TempClone    bool
	Schedule     string
}

// Result describes one successful run.
type Result struct {
	SessionID int64
	Summary   *schema.ScanSummary
	Sync      schema.SyncReport
	Persist   schema.PersistStats
	Reports   []string
	Duration  time.Duration
}

// Scheduler guards the pipeline so at most one run is in flight,
// whether it was started by the timer or by hand.
type Scheduler struct {
	deps Deps
	opts Options
	now  func() time.Time

	running atomic.Bool

	mu          sync.RWMutex
	status      schema.RunStatus
	lastRun     time.Time
	lastErr     error
	lastSession int64

	cron  *cron.Cron
	entry cron.EntryID
	wg    sync.WaitGroup
}

// New creates a scheduler. An empty schedule falls back to the default.
func New(deps Deps, opts Options) *Scheduler {
	if opts.Schedule == "" {
		opts.Schedule = contract.DefaultSchedule
	}
	return &Scheduler{deps: deps, opts: opts, now: time.Now, status: schema.RunNever}
}

// NewFromConfig creates a scheduler from the validated config.
func NewFromConfig(cfg *contract.Config, deps Deps) *Scheduler {
	return New(deps, Options{
		Repositories: cfg.Repositories,
		HubPath:      cfg.HubPath,
		TempClone:    cfg.TempClone,
		Schedule:     cfg.Schedule,
	})
}

// RunScan executes one full run in the calling goroutine.
// It fails fast with ErrScanInProgress when another run holds the guard.
func (s *Scheduler) RunScan(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, contract.Wrap(contract.ErrScanInProgress, "scan rejected", nil)
	}
	defer s.running.Store(false)
	return s.run(ctx)
}

// RunAsync claims the guard and runs the pipeline in the background.
// The error is ErrScanInProgress when a run is already in flight.
func (s *Scheduler) RunAsync(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return contract.Wrap(contract.ErrScanInProgress, "scan rejected", nil)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		if _, err := s.run(ctx); err != nil {
			contract.LogError("Background scan failed", err)
		}
	}()
	return nil
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// run must only be called while holding the running guard.
func (s *Scheduler) run(ctx context.Context) (res Result, err error) {
	started := s.now()
	s.mu.Lock()
	s.lastRun = started
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan panicked: %v", r)
			contract.LogError("Scan aborted", err)
			s.finish(schema.RunError, err, 0)
		}
	}()

	if err := s.deps.Store.EnsureSchema(ctx); err != nil {
		s.finish(schema.RunFailed, err, 0)
		return res, err
	}

	if err := s.deps.Hub.EnsureHub(); err != nil {
		s.finish(schema.RunFailed, err, 0)
		return res, err
	}
	res.Sync = s.deps.Hub.SyncAll(ctx, s.opts.Repositories)
	if res.Sync.Err != nil {
		contract.LogWarn(fmt.Sprintf("%d of %d repositories failed to sync", res.Sync.Failed, len(res.Sync.Outcomes)), res.Sync.Err)
	}

	// A scanner failure never reaches the store; only the snapshot keeps it.
	summary, err := s.deps.Scanner.Scan(ctx, s.opts.HubPath)
	if err != nil {
		s.finish(schema.RunFailed, err, 0)
		return res, err
	}
	res.Summary = summary

	duration := s.now().Sub(started)
	id, stats, err := s.deps.Store.PersistSummary(ctx, summary, duration)
	if err != nil {
		s.recordFailure(ctx, started, err)
		s.finish(schema.RunFailed, err, 0)
		return res, err
	}
	res.SessionID = id
	res.Persist = stats
	for _, sk := range stats.Skipped {
		contract.LogWarn(fmt.Sprintf("Skipped %s row %s", sk.Table, sk.Key), sk.Err)
	}

	if s.opts.TempClone {
		for _, name := range res.Sync.SyncedNames() {
			if err := s.deps.Hub.Release(name); err != nil {
				contract.LogWarn("Cannot release checkout "+name, err)
			}
		}
	}

	if s.deps.Reporter != nil {
		paths, err := s.deps.Reporter.Generate(ctx, id, summary)
		if err != nil {
			contract.LogWarn(fmt.Sprintf("Report for session %d failed", id), err)
		}
		res.Reports = paths
	}

	res.Duration = s.now().Sub(started)
	s.finish(schema.RunSuccess, nil, id)
	contract.LogInfof("Session %d persisted: %d repositories, %d classes, %d methods in %s",
		id, summary.TotalRepositories, summary.TotalTestClasses, summary.TotalTestMethods, res.Duration.Round(time.Millisecond))
	return res, nil
}

// recordFailure writes a failed session row. Its own failure is only logged.
func (s *Scheduler) recordFailure(ctx context.Context, started time.Time, cause error) {
	if _, err := s.deps.Store.RecordFailedSession(ctx, s.opts.HubPath, started, s.now().Sub(started), cause); err != nil {
		contract.LogWarn("Cannot record failed session", err)
	}
}

func (s *Scheduler) finish(status schema.RunStatus, err error, sessionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.lastErr = err
	if sessionID > 0 {
		s.lastSession = sessionID
	}
}

// Start registers the recurring run and starts the timer.
// Each tick calls RunScan; a tick that lands on a busy scheduler is logged and dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	entry, err := c.AddFunc(s.opts.Schedule, func() {
		if _, err := s.RunScan(ctx); err != nil {
			contract.LogWarn("Scheduled scan did not complete", err)
		}
	})
	if err != nil {
		return contract.Wrap(contract.ErrConfig, fmt.Sprintf("invalid schedule %q", s.opts.Schedule), err)
	}
	s.mu.Lock()
	s.cron = c
	s.entry = entry
	s.mu.Unlock()
	c.Start()
	contract.LogInfof("Scheduled scans with %q", s.opts.Schedule)
	return nil
}

// Stop halts the timer and waits for any in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	c := s.cron
	s.mu.RUnlock()
	if c != nil {
		<-c.Stop().Done()
	}
	s.wg.Wait()
}

// Snapshot returns the current status for inspection.
func (s *Scheduler) Snapshot() schema.RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := schema.RunSnapshot{
		Running:       s.running.Load(),
		Status:        s.status,
		LastRunTime:   s.lastRun,
		LastSessionID: s.lastSession,
		Schedule:      s.opts.Schedule,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	if s.cron != nil {
		snap.NextRunTime = s.cron.Entry(s.entry).Next
	}
	return snap
}
