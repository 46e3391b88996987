package contract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	return c.run(ctx, repoPath, nil, args...)
}

// Clone implements the GitClient interface.
func (c *LocalGitClient) Clone(ctx context.Context, url, dest string, auth GitAuth) error {
	env, pre := authArgs(auth)
	args := append(pre, "clone", "--quiet", "--", url, dest)
	_, err := c.run(ctx, "", env, args...)
	return err
}

// Pull implements the GitClient interface.
func (c *LocalGitClient) Pull(ctx context.Context, repoPath string, auth GitAuth) error {
	env, pre := authArgs(auth)
	args := append(pre, "pull", "--ff-only", "--quiet")
	_, err := c.run(ctx, repoPath, env, args...)
	return err
}

func (c *LocalGitClient) run(ctx context.Context, repoPath string, env []string, args ...string) ([]byte, error) {
	var fullArgs []string
	if repoPath != "" {
		fullArgs = append(fullArgs, "-C", repoPath)
	}
	fullArgs = append(fullArgs, args...)

	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.Output()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("git %s: %w", subcommand(args), ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git %s failed in %q: %s", subcommand(args), repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// authArgs returns the extra environment and leading git arguments for auth.
// Basic credentials travel as a one-off http header so they never reach .git/config.
func authArgs(auth GitAuth) ([]string, []string) {
	switch auth.Mode() {
	case AuthSSH:
		// git hands GIT_SSH_COMMAND to a shell
		ssh := shellquote.Join("ssh", "-i", auth.SSHKeyPath, "-o", "IdentitiesOnly=yes", "-o", "StrictHostKeyChecking=accept-new")
		return []string{"GIT_SSH_COMMAND=" + ssh}, nil
	case AuthBasic:
		token := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		return nil, []string{"-c", "http.extraHeader=Authorization: Basic " + token}
	default:
		return nil, nil
	}
}

// subcommand returns the first non-option argument, skipping "-c key=value" pairs.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" || args[i] == "-C" {
			i++
			continue
		}
		if !strings.HasPrefix(args[i], "-") {
			return args[i]
		}
	}
	return "command"
}
