//go:build basic || database

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	// sharedBinaryPath holds the path to a testhub binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getTesthubBinary returns the path to the testhub binary, building it once if needed.
func getTesthubBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "testhub-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binPath := filepath.Join(tempDir, "testhub")
		buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/testhub")
		buildCmd.Dir = ".." // Build from the project root
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build testhub: %v\n%s", err, out))
		}

		sharedBinaryPath = binPath
	})

	return sharedBinaryPath
}

// runTesthub executes the binary with a clean TESTHUB_ environment plus env.
func runTesthub(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getTesthubBinary(), args...)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

const loginTestSource = `package com.shop.auth;

import org.junit.jupiter.api.Test;

public class LoginTest {
    @Test
    @TestCaseInfo(title = "Login works", testCaseIds = {"TC-1", "TC-2"}, author = "qa")
    void login() {}

    @Test
    @TestCaseId({"TC-3"})
    void logout() {}

    @Test
    void untracked() {}
}
`

// shopRepoURL names the checkout makeHub creates. Its pull fails against the
// fake .git directory, which a scan logs and tolerates.
const shopRepoURL = "https://git.invalid/qa/shop.git"

// makeHub lays out a hub with one repository holding one test class.
func makeHub(t *testing.T) string {
	t.Helper()
	hub := t.TempDir()
	repo := filepath.Join(hub, "shop")
	src := filepath.Join(repo, "src", "test", "java", "com", "shop", "auth", "LoginTest.java")
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte(loginTestSource), 0o644); err != nil {
		t.Fatal(err)
	}
	return hub
}
