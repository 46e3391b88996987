// Package gitclient keeps a local hub of repository checkouts in sync with their remotes.
package gitclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// Options control authentication and the retry policy of each repository sync.
type Options struct {
	Auth          contract.GitAuth
	Timeout       time.Duration // Per attempt
	Attempts      int
	RetryInterval time.Duration // First backoff interval, grows exponentially
}

// HubManager clones and pulls repositories under one hub directory.
// Repositories are synced one at a time.
type HubManager struct {
	root   string
	client contract.GitClient
	opts   Options
}

var _ contract.HubSyncer = &HubManager{} // Compile-time check

// NewHubManager creates a hub manager rooted at root.
func NewHubManager(root string, client contract.GitClient, opts Options) *HubManager {
	if opts.Timeout <= 0 {
		opts.Timeout = contract.DefaultGitTimeout
	}
	if opts.Attempts < 1 {
		opts.Attempts = contract.DefaultGitRetries
	}
	if opts.RetryInterval < 0 {
		opts.RetryInterval = 0
	}
	return &HubManager{root: root, client: client, opts: opts}
}

// NewHubManagerFromConfig creates a hub manager from the validated config.
func NewHubManagerFromConfig(cfg *contract.Config, client contract.GitClient) *HubManager {
	return NewHubManager(cfg.HubPath, client, Options{
		Auth: contract.GitAuth{
			Username:   cfg.GitUsername,
			Password:   cfg.GitPassword,
			SSHKeyPath: cfg.GitSSHKey,
		},
		Timeout:       cfg.GitTimeout,
		Attempts:      cfg.GitRetries,
		RetryInterval: cfg.GitRetryInterval,
	})
}

// Root returns the hub directory.
func (h *HubManager) Root() string {
	return h.root
}

// Path returns the checkout directory of a repository.
func (h *HubManager) Path(name string) string {
	return filepath.Join(h.root, name)
}

// EnsureHub creates the hub directory when absent and checks that it is writable.
func (h *HubManager) EnsureHub() error {
	info, err := os.Stat(h.root)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(h.root, 0o755); err != nil {
			return contract.Wrap(contract.ErrIO, fmt.Sprintf("create hub %s", h.root), err)
		}
	case err != nil:
		return contract.Wrap(contract.ErrIO, fmt.Sprintf("stat hub %s", h.root), err)
	case !info.IsDir():
		return contract.Wrap(contract.ErrIO, fmt.Sprintf("hub %s is not a directory", h.root), nil)
	}

	probe, err := os.CreateTemp(h.root, ".testhub-probe-*")
	if err != nil {
		return contract.Wrap(contract.ErrIO, fmt.Sprintf("hub %s is not writable", h.root), err)
	}
	name := probe.Name()
	_ = probe.Close()
	if err := os.Remove(name); err != nil {
		return contract.Wrap(contract.ErrIO, fmt.Sprintf("hub %s probe cleanup", h.root), err)
	}
	return nil
}

// SyncRepository pulls an existing checkout or clones a new one.
// Every attempt gets its own timeout; failed attempts are retried with exponential backoff.
// A partially cloned directory is removed before the next attempt.
func (h *HubManager) SyncRepository(ctx context.Context, spec contract.RepositorySpec) schema.SyncOutcome {
	name := spec.Name
	if name == "" {
		name = contract.RepoNameFromURL(spec.URL)
	}
	out := schema.SyncOutcome{Name: name}
	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	dir := h.Path(name)
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		out.Cloned = true
	}

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		out.Attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()

		if !out.Cloned {
			return h.client.Pull(attemptCtx, dir, h.opts.Auth)
		}
		if err := os.RemoveAll(dir); err != nil {
			return backoff.Permanent(contract.Wrap(contract.ErrIO, "clear partial clone", err))
		}
		return h.client.Clone(attemptCtx, spec.URL, dir, h.opts.Auth)
	}
	notify := func(err error, next time.Duration) {
		contract.LogWarn(fmt.Sprintf("git sync %s attempt %d failed, retrying in %s", name, out.Attempts, next), err)
	}

	err := backoff.RetryNotify(op, h.newBackOff(ctx), notify)
	if err != nil && out.Cloned {
		_ = os.RemoveAll(dir)
	}
	if err != nil && !errors.Is(err, contract.ErrIO) {
		err = contract.Wrap(contract.ErrConnectivity, fmt.Sprintf("sync %s from %s", name, contract.RedactURL(spec.URL)), err)
	}
	out.Err = err
	return out
}

func (h *HubManager) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = h.opts.RetryInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(h.opts.Attempts-1)), ctx)
}

// SyncAll syncs every repository in order. One failure never stops the rest;
// all failures are collected in the report's Err.
func (h *HubManager) SyncAll(ctx context.Context, specs []contract.RepositorySpec) schema.SyncReport {
	var report schema.SyncReport
	var errs *multierror.Error
	for _, spec := range specs {
		out := h.SyncRepository(ctx, spec)
		report.Outcomes = append(report.Outcomes, out)
		if out.Err != nil {
			report.Failed++
			errs = multierror.Append(errs, out.Err)
			contract.LogError(fmt.Sprintf("git sync %s", out.Name), out.Err)
			continue
		}
		report.Succeeded++
		verb := "pulled"
		if out.Cloned {
			verb = "cloned"
		}
		contract.LogInfof("git sync %s %s in %s", out.Name, verb, out.Duration.Round(time.Millisecond))
	}
	report.Err = errs.ErrorOrNil()
	return report
}

// Release removes a repository's working tree from the hub.
func (h *HubManager) Release(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return contract.Wrap(contract.ErrIO, fmt.Sprintf("refusing to release %q", name), nil)
	}
	if err := os.RemoveAll(h.Path(name)); err != nil {
		return contract.Wrap(contract.ErrIO, fmt.Sprintf("release %s", name), err)
	}
	return nil
}
