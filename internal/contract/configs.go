package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/testhub/schema"
	"github.com/robfig/cron/v3"
)

// Default values for configuration.
const (
	DefaultHubPath        = "hub"
	DefaultSchedule       = "@daily"
	DefaultBatchSize      = 1000
	MaxBatchSize          = 10000
	DefaultGitTimeout     = 10 * time.Minute
	DefaultGitRetries     = 3
	DefaultRetryInterval  = 5 * time.Second
	DefaultMaxOpenConns   = 10
	DefaultMaxIdleConns   = 5
	DefaultStatusLimit    = 10
	DefaultHTTPAddr       = ":8080"
	DefaultDatabaseSuffix = ".testhub.db"
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// RepositorySpec is one repository the hub keeps a checkout of.
type RepositorySpec struct {
	URL        string
	Name       string // Folder name under the hub, derived from URL
	TeamName   string
	TeamCode   string
	Department string
}

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	HubPath      string
	Repositories []RepositorySpec
	TempClone    bool // Remove each checkout once it has been scanned and persisted
	Schedule     string

	GitUsername      string
	GitPassword      string // Please use env var as this is plaintext
	GitSSHKey        string
	GitTimeout       time.Duration
	GitRetries       int
	GitRetryInterval time.Duration

	Include []string
	Exclude []string

	DBBackend      schema.DatabaseBackend
	DBConnect      string // Please use env var as this is plaintext
	DBMaxOpenConns int
	DBMaxIdleConns int
	BatchSize      int

	ReportDir       string
	ReportBucket    string
	ReportEndpoint  string
	ReportAccessKey string
	ReportSecretKey string
	ReportUseSSL    bool

	HTTPAddr   string
	Output     schema.OutputMode
	OutputFile string // Empty means stdout
	Limit      int
	Width      int // Terminal width override (0 = auto-detect)
}

// RepositoryRawInput is one entry of the repositories list in the config file.
type RepositoryRawInput struct {
	URL        string `mapstructure:"url"`
	TeamName   string `mapstructure:"team-name"`
	TeamCode   string `mapstructure:"team-code"`
	Department string `mapstructure:"department"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	HubPath        string `mapstructure:"hub-path"`
	DBBackend      string `mapstructure:"db-backend"`
	DBConnect      string `mapstructure:"db-connect"`
	DBMaxOpenConns int    `mapstructure:"db-max-open-conns"`
	DBMaxIdleConns int    `mapstructure:"db-max-idle-conns"`
	Output         string `mapstructure:"output"`
	Width          int    `mapstructure:"width"`
	OutputFile     string `mapstructure:"output-file"`

	// --- Fields shared by scan, sync and serve ---
	Repos            []string `mapstructure:"repo"`
	GitUsername      string   `mapstructure:"git-username"`
	GitPassword      string   `mapstructure:"git-password"`
	GitSSHKey        string   `mapstructure:"git-ssh-key"`
	GitTimeout       string   `mapstructure:"git-timeout"`
	GitRetries       int      `mapstructure:"git-retries"`
	GitRetryInterval string   `mapstructure:"git-retry-interval"`
	TempClone        bool     `mapstructure:"temp-clone"`
	Include          string   `mapstructure:"include"`
	Exclude          string   `mapstructure:"exclude"`
	BatchSize        int      `mapstructure:"batch-size"`

	ReportDir       string `mapstructure:"report-dir"`
	ReportBucket    string `mapstructure:"report-bucket"`
	ReportEndpoint  string `mapstructure:"report-endpoint"`
	ReportAccessKey string `mapstructure:"report-access-key"`
	ReportSecretKey string `mapstructure:"report-secret-key"`
	ReportUseSSL    bool   `mapstructure:"report-use-ssl"`

	// --- Fields from serveCmd.Flags() ---
	Schedule string `mapstructure:"schedule"`
	HTTPAddr string `mapstructure:"http-addr"`

	// --- Fields from statusCmd.Flags() ---
	Limit int `mapstructure:"limit"`

	// --- Repository list from config file ---
	Repositories []RepositoryRawInput `mapstructure:"repositories"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Repositories = append([]RepositorySpec(nil), c.Repositories...)
	clone.Include = append([]string(nil), c.Include...)
	clone.Exclude = append([]string(nil), c.Exclude...)
	return &clone
}

// RepositoryByName returns the repository spec checked out under the given folder name.
func (c *Config) RepositoryByName(name string) (RepositorySpec, bool) {
	for _, r := range c.Repositories {
		if r.Name == name {
			return r, true
		}
	}
	return RepositorySpec{}, false
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. Every error wraps ErrConfig.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return Wrap(ErrConfig, "config", err)
	}
	if err := processGitSettings(cfg, input); err != nil {
		return Wrap(ErrConfig, "config", err)
	}
	if err := processRepositories(cfg, input); err != nil {
		return Wrap(ErrConfig, "config", err)
	}
	if err := processBackend(cfg, input); err != nil {
		return Wrap(ErrConfig, "config", err)
	}
	if err := processReport(cfg, input); err != nil {
		return Wrap(ErrConfig, "config", err)
	}
	return nil
}

// validateSimpleInputs handles the fields that need no cross-checking.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.HubPath = strings.TrimSpace(input.HubPath)
	if cfg.HubPath == "" {
		cfg.HubPath = DefaultHubPath
	}
	abs, err := filepath.Abs(cfg.HubPath)
	if err != nil {
		return fmt.Errorf("invalid hub path %q: %w", cfg.HubPath, err)
	}
	cfg.HubPath = filepath.Clean(abs)

	cfg.TempClone = input.TempClone
	cfg.Schedule = strings.TrimSpace(input.Schedule)
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("invalid schedule '%s': %w", input.Schedule, err)
	}
	cfg.HTTPAddr = strings.TrimSpace(input.HTTPAddr)
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	cfg.Output = schema.OutputMode(strings.ToLower(strings.TrimSpace(input.Output)))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output '%s'. must be text or json", input.Output)
	}

	cfg.OutputFile = strings.TrimSpace(input.OutputFile)

	cfg.Limit = input.Limit
	if cfg.Limit == 0 {
		cfg.Limit = DefaultStatusLimit
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("limit must be positive (received %d)", input.Limit)
	}
	if input.Width < 0 {
		return fmt.Errorf("width must be non-negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	cfg.BatchSize = input.BatchSize
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch size must be between 1 and %d (received %d)", MaxBatchSize, input.BatchSize)
	}

	cfg.Include = SplitPatterns(input.Include)
	cfg.Exclude = SplitPatterns(input.Exclude)
	if _, err := NewPathFilter(cfg.Include, cfg.Exclude); err != nil {
		return err
	}
	return nil
}

// processGitSettings handles credentials, timeouts and retries.
func processGitSettings(cfg *Config, input *ConfigRawInput) error {
	cfg.GitUsername = strings.TrimSpace(input.GitUsername)
	cfg.GitPassword = input.GitPassword
	cfg.GitSSHKey = strings.TrimSpace(input.GitSSHKey)
	if cfg.GitPassword != "" && cfg.GitUsername == "" {
		return fmt.Errorf("git-password requires git-username")
	}
	if cfg.GitSSHKey != "" {
		if _, err := os.Stat(cfg.GitSSHKey); err != nil {
			return fmt.Errorf("git-ssh-key %q is not readable: %w", cfg.GitSSHKey, err)
		}
	}

	cfg.GitTimeout = DefaultGitTimeout
	if input.GitTimeout != "" {
		d, err := time.ParseDuration(input.GitTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid git-timeout '%s'. Expected a positive duration like 10m", input.GitTimeout)
		}
		cfg.GitTimeout = d
	}

	cfg.GitRetryInterval = DefaultRetryInterval
	if input.GitRetryInterval != "" {
		d, err := time.ParseDuration(input.GitRetryInterval)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid git-retry-interval '%s'", input.GitRetryInterval)
		}
		cfg.GitRetryInterval = d
	}

	cfg.GitRetries = input.GitRetries
	if cfg.GitRetries == 0 {
		cfg.GitRetries = DefaultGitRetries
	}
	if cfg.GitRetries < 1 {
		return fmt.Errorf("git-retries must be at least 1 (received %d)", input.GitRetries)
	}
	return nil
}

// processRepositories merges the config-file list with --repo flags and
// rejects two URLs that would share one checkout folder.
func processRepositories(cfg *Config, input *ConfigRawInput) error {
	raw := make([]RepositoryRawInput, 0, len(input.Repositories)+len(input.Repos))
	raw = append(raw, input.Repositories...)
	for _, u := range input.Repos {
		raw = append(raw, RepositoryRawInput{URL: u})
	}

	cfg.Repositories = nil
	byName := make(map[string]string, len(raw))
	for _, r := range raw {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			return fmt.Errorf("repository entry without url")
		}
		name := RepoNameFromURL(url)
		if name == "" || name == "." || name == ".." {
			return fmt.Errorf("cannot derive a folder name from repository url %q", url)
		}
		if prev, ok := byName[name]; ok {
			if prev == url {
				continue
			}
			return fmt.Errorf("repositories %q and %q both map to hub folder %q", prev, url, name)
		}
		byName[name] = url
		cfg.Repositories = append(cfg.Repositories, RepositorySpec{
			URL:        url,
			Name:       name,
			TeamName:   strings.TrimSpace(r.TeamName),
			TeamCode:   strings.TrimSpace(r.TeamCode),
			Department: strings.TrimSpace(r.Department),
		})
	}
	return nil
}

// RequireRepositories fails when neither the config file nor --repo named a repository.
// Commands that sync or scan call it after ProcessAndValidate.
func (c *Config) RequireRepositories() error {
	if len(c.Repositories) == 0 {
		return Wrap(ErrConfig, "config", fmt.Errorf("repository list missing: set 'repositories' in the config file or pass --repo"))
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// processBackend validates the persistence backend and pool limits.
func processBackend(cfg *Config, input *ConfigRawInput) error {
	cfg.DBBackend = schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(input.DBBackend)))
	if cfg.DBBackend == "" {
		cfg.DBBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.DBBackend]; !ok {
		return fmt.Errorf("invalid db backend '%s'. must be sqlite, mysql, postgresql, none", input.DBBackend)
	}
	cfg.DBConnect = input.DBConnect
	if err := ValidateDatabaseConnectionString(cfg.DBBackend, cfg.DBConnect); err != nil {
		return err
	}
	if cfg.DBBackend == schema.SQLiteBackend && cfg.DBConnect == "" {
		cfg.DBConnect = GetDBFilePath()
	}

	cfg.DBMaxOpenConns = input.DBMaxOpenConns
	if cfg.DBMaxOpenConns == 0 {
		cfg.DBMaxOpenConns = DefaultMaxOpenConns
	}
	cfg.DBMaxIdleConns = input.DBMaxIdleConns
	if cfg.DBMaxIdleConns == 0 {
		cfg.DBMaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.DBMaxOpenConns < 1 || cfg.DBMaxIdleConns < 0 {
		return fmt.Errorf("db pool limits must be positive (open=%d, idle=%d)", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	}
	if cfg.DBMaxIdleConns > cfg.DBMaxOpenConns {
		cfg.DBMaxIdleConns = cfg.DBMaxOpenConns
	}
	return nil
}

// processReport validates the optional report settings.
func processReport(cfg *Config, input *ConfigRawInput) error {
	cfg.ReportDir = strings.TrimSpace(input.ReportDir)
	cfg.ReportBucket = strings.TrimSpace(input.ReportBucket)
	cfg.ReportEndpoint = strings.TrimSpace(input.ReportEndpoint)
	cfg.ReportAccessKey = input.ReportAccessKey
	cfg.ReportSecretKey = input.ReportSecretKey
	cfg.ReportUseSSL = input.ReportUseSSL

	if cfg.ReportBucket == "" {
		return nil
	}
	if cfg.ReportDir == "" {
		return fmt.Errorf("report-bucket requires report-dir")
	}
	if cfg.ReportEndpoint == "" {
		return fmt.Errorf("report-bucket requires report-endpoint")
	}
	if cfg.ReportAccessKey == "" || cfg.ReportSecretKey == "" {
		return fmt.Errorf("report-bucket requires report-access-key and report-secret-key")
	}
	return nil
}
