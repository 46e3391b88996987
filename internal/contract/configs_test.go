package contract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/testhub/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAndValidate(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyFile, []byte("key"), 0o600))

	tests := []struct {
		name        string
		input       *ConfigRawInput
		expectError bool
	}{
		{
			name:  "valid minimal config",
			input: &ConfigRawInput{},
		},
		{
			name: "valid full config",
			input: &ConfigRawInput{
				HubPath:    "/tmp/hub",
				Repos:      []string{"https://example.com/org/payments.git"},
				GitSSHKey:  keyFile,
				GitTimeout: "90s",
				GitRetries: 5,
				Include:    "svc-*, team/**",
				Exclude:    "archive/**",
				BatchSize:  250,
				DBBackend:  "MySQL",
				DBConnect:  "user:pass@tcp(localhost:3306)/testhub",
				Schedule:   "0 2 * * *",
				Output:     "json",
				Repositories: []RepositoryRawInput{
					{URL: "git@example.com:org/orders.git", TeamName: "Orders", TeamCode: "ORD"},
				},
			},
		},
		{
			name:        "invalid output format",
			input:       &ConfigRawInput{Output: "csv"},
			expectError: true,
		},
		{
			name:        "invalid db backend",
			input:       &ConfigRawInput{DBBackend: "oracle"},
			expectError: true,
		},
		{
			name:        "mysql without connection",
			input:       &ConfigRawInput{DBBackend: "mysql"},
			expectError: true,
		},
		{
			name:        "postgres missing dbname",
			input:       &ConfigRawInput{DBBackend: "postgresql", DBConnect: "host=localhost"},
			expectError: true,
		},
		{
			name:        "batch size too large",
			input:       &ConfigRawInput{BatchSize: MaxBatchSize + 1},
			expectError: true,
		},
		{
			name:        "negative limit",
			input:       &ConfigRawInput{Limit: -1},
			expectError: true,
		},
		{
			name:        "bad git timeout",
			input:       &ConfigRawInput{GitTimeout: "soon"},
			expectError: true,
		},
		{
			name:        "negative git retries",
			input:       &ConfigRawInput{GitRetries: -2},
			expectError: true,
		},
		{
			name:        "password without username",
			input:       &ConfigRawInput{GitPassword: "secret"},
			expectError: true,
		},
		{
			name:        "missing ssh key",
			input:       &ConfigRawInput{GitSSHKey: "/nonexistent/key"},
			expectError: true,
		},
		{
			name:        "repository without url",
			input:       &ConfigRawInput{Repositories: []RepositoryRawInput{{TeamCode: "X"}}},
			expectError: true,
		},
		{
			name: "folder name collision",
			input: &ConfigRawInput{Repos: []string{
				"https://github.com/a/api.git",
				"https://gitlab.com/b/api",
			}},
			expectError: true,
		},
		{
			name:        "bad schedule",
			input:       &ConfigRawInput{Schedule: "every day"},
			expectError: true,
		},
		{
			name:        "bucket without endpoint",
			input:       &ConfigRawInput{ReportDir: "out", ReportBucket: "reports"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := ProcessAndValidate(cfg, tt.input)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfig), "error should wrap ErrConfig: %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{}))

	assert.True(t, filepath.IsAbs(cfg.HubPath))
	assert.Equal(t, DefaultHubPath, filepath.Base(cfg.HubPath))
	assert.Equal(t, DefaultSchedule, cfg.Schedule)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultGitTimeout, cfg.GitTimeout)
	assert.Equal(t, DefaultGitRetries, cfg.GitRetries)
	assert.Equal(t, DefaultRetryInterval, cfg.GitRetryInterval)
	assert.Equal(t, schema.SQLiteBackend, cfg.DBBackend)
	assert.Equal(t, GetDBFilePath(), cfg.DBConnect)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, DefaultStatusLimit, cfg.Limit)
	assert.Empty(t, cfg.Repositories)
}

func TestProcessAndValidate_Repositories(t *testing.T) {
	cfg := &Config{}
	input := &ConfigRawInput{
		GitTimeout: "2m",
		Repositories: []RepositoryRawInput{
			{URL: " git@example.com:org/orders.git ", TeamName: "Orders", TeamCode: "ORD", Department: "Retail"},
		},
		Repos: []string{
			"https://example.com/org/payments/",
			"git@example.com:org/orders.git", // same URL twice is not a collision
		},
	}
	require.NoError(t, ProcessAndValidate(cfg, input))

	require.Len(t, cfg.Repositories, 2)
	assert.Equal(t, RepositorySpec{
		URL:        "git@example.com:org/orders.git",
		Name:       "orders",
		TeamName:   "Orders",
		TeamCode:   "ORD",
		Department: "Retail",
	}, cfg.Repositories[0])
	assert.Equal(t, "payments", cfg.Repositories[1].Name)
	assert.Equal(t, 2*time.Minute, cfg.GitTimeout)

	spec, ok := cfg.RepositoryByName("orders")
	assert.True(t, ok)
	assert.Equal(t, "ORD", spec.TeamCode)
	_, ok = cfg.RepositoryByName("missing")
	assert.False(t, ok)
}

func TestProcessAndValidate_CollisionMessage(t *testing.T) {
	err := ProcessAndValidate(&Config{}, &ConfigRawInput{Repos: []string{"https://a/x/api.git", "https://b/y/api"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `hub folder "api"`)
}

func TestConfig_RequireRepositories(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{HubPath: t.TempDir(), DBBackend: "none"}))
	err := cfg.RequireRepositories()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "repository list missing")

	require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{Repos: []string{"https://example.com/org/shop.git"}}))
	assert.NoError(t, cfg.RequireRepositories())
}

func TestConfig_Clone(t *testing.T) {
	cfg := &Config{
		Repositories: []RepositorySpec{{Name: "a"}},
		Include:      []string{"x"},
	}
	clone := cfg.Clone()
	clone.Repositories[0].Name = "b"
	clone.Include[0] = "y"

	assert.Equal(t, "a", cfg.Repositories[0].Name)
	assert.Equal(t, "x", cfg.Include[0])
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "u:p@tcp(h:3306)/db", false},
		{schema.MySQLBackend, "u:p@h/db", true},
		{schema.MySQLBackend, "u:p@tcp(h:3306)", true},
		{schema.PostgreSQLBackend, "host=h dbname=db", false},
		{schema.PostgreSQLBackend, "dbname=db", true},
	}
	for _, tt := range tests {
		err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
		assert.Equal(t, tt.wantErr, err != nil, "%s %q", tt.backend, tt.conn)
	}
}
