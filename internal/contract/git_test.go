package contract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfGitNotAvailable skips the test if git binary is not found in PATH
func skipIfGitNotAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git binary not found in PATH: %v", err)
	}
}

// initSourceRepo creates a repository with one commit that can be cloned from its path.
func initSourceRepo(t *testing.T, client *LocalGitClient) string {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	_, err := client.Run(ctx, dir, "init", "--quiet")
	require.NoError(t, err)
	commit(t, client, dir, "first")
	return dir
}

func commit(t *testing.T, client *LocalGitClient, dir, msg string) {
	t.Helper()
	_, err := client.Run(context.Background(), dir,
		"-c", "user.name=testhub", "-c", "user.email=testhub@example.com",
		"commit", "--quiet", "--allow-empty", "-m", msg)
	require.NoError(t, err)
}

// TestMockGitClient_Run ensures the mock records and returns programmed values.
func TestMockGitClient_Run(t *testing.T) {
	mockClient := new(MockGitClient)
	ctx := context.Background()
	expectedOutput := []byte("a1b2c3d commit message")
	expectedError := errors.New("mocked git error")

	mockClient.
		On("Run", ctx, "/path/to/repo", "log", "-1", "--oneline").
		Return(expectedOutput, expectedError).
		Once()

	actualOutput, actualError := mockClient.Run(ctx, "/path/to/repo", "log", "-1", "--oneline")

	assert.Equal(t, expectedOutput, actualOutput)
	assert.Equal(t, expectedError, actualError)
	mockClient.AssertExpectations(t)
}

// TestNewLocalGitClient tests the constructor for LocalGitClient.
func TestNewLocalGitClient(t *testing.T) {
	client := NewLocalGitClient()
	assert.NotNil(t, client, "NewLocalGitClient should return a non-nil client")
	assert.IsType(t, &LocalGitClient{}, client)
}

// TestLocalGitClient_Run tests the Run method with failing invocations.
func TestLocalGitClient_Run(t *testing.T) {
	skipIfGitNotAvailable(t)

	client := NewLocalGitClient()
	ctx := context.Background()
	repo := initSourceRepo(t, client)

	tests := []struct {
		name     string
		repoPath string
		args     []string
	}{
		{name: "invalid repo path", repoPath: "/nonexistent/path", args: []string{"status"}},
		{name: "invalid git command", repoPath: repo, args: []string{"invalid-command"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Run(ctx, tt.repoPath, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestLocalGitClient_CloneAndPull(t *testing.T) {
	skipIfGitNotAvailable(t)

	client := NewLocalGitClient()
	ctx := context.Background()
	src := initSourceRepo(t, client)
	dest := filepath.Join(t.TempDir(), "checkout")

	require.NoError(t, client.Clone(ctx, src, dest, GitAuth{}))
	_, err := os.Stat(filepath.Join(dest, ".git"))
	require.NoError(t, err)
	assert.Equal(t, src, ReadRemoteURL(dest))

	commit(t, client, src, "second")
	require.NoError(t, client.Pull(ctx, dest, GitAuth{}))

	out, err := client.Run(ctx, dest, "log", "--format=%s", "-1")
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(out))
}

func TestLocalGitClient_CloneHonoursContext(t *testing.T) {
	skipIfGitNotAvailable(t)

	client := NewLocalGitClient()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := client.Clone(ctx, initSourceRepo(t, client), filepath.Join(t.TempDir(), "x"), GitAuth{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGitAuth_Mode(t *testing.T) {
	assert.Equal(t, AuthAnonymous, GitAuth{}.Mode())
	assert.Equal(t, AuthBasic, GitAuth{Username: "u", Password: "p"}.Mode())
	assert.Equal(t, AuthSSH, GitAuth{Username: "u", Password: "p", SSHKeyPath: "/k"}.Mode())
}

func TestAuthArgs(t *testing.T) {
	env, pre := authArgs(GitAuth{SSHKeyPath: "/keys/id"})
	assert.Nil(t, pre)
	require.Len(t, env, 1)
	assert.Contains(t, env[0], "GIT_SSH_COMMAND=ssh -i /keys/id")
	assert.Contains(t, env[0], "IdentitiesOnly=yes")

	for _, key := range []string{"/home/qa user/.ssh/id key", "/keys/$(touch pwned);id"} {
		env, _ = authArgs(GitAuth{SSHKeyPath: key})
		require.Len(t, env, 1)
		words, err := shellquote.Split(strings.TrimPrefix(env[0], "GIT_SSH_COMMAND="))
		require.NoError(t, err)
		assert.Equal(t, []string{"ssh", "-i", key, "-o", "IdentitiesOnly=yes", "-o", "StrictHostKeyChecking=accept-new"}, words)
	}

	env, pre = authArgs(GitAuth{Username: "bob", Password: "secret"})
	assert.Nil(t, env)
	// base64("bob:secret")
	assert.Equal(t, []string{"-c", "http.extraHeader=Authorization: Basic Ym9iOnNlY3JldA=="}, pre)

	env, pre = authArgs(GitAuth{})
	assert.Nil(t, env)
	assert.Nil(t, pre)
}

func TestSubcommand(t *testing.T) {
	assert.Equal(t, "clone", subcommand([]string{"-c", "a=b", "clone", "--quiet"}))
	assert.Equal(t, "pull", subcommand([]string{"pull", "--ff-only"}))
	assert.Equal(t, "command", subcommand([]string{"--version"}))
}
