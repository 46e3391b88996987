// Package cmd defines the command-line interface for testhub.
package cmd

import (
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("hub-path", contract.DefaultHubPath, "Directory holding one checkout per repository")
	rootCmd.PersistentFlags().StringSlice("repo", nil, "Repository URL to sync (repeatable, adds to the config file list)")
	rootCmd.PersistentFlags().String("git-username", "", "Username for HTTPS remotes")
	rootCmd.PersistentFlags().String("git-password", "", "Password or token for HTTPS remotes (prefer TESTHUB_GIT_PASSWORD)")
	rootCmd.PersistentFlags().String("git-ssh-key", "", "Private key for SSH remotes")
	rootCmd.PersistentFlags().String("git-timeout", contract.DefaultGitTimeout.String(), "Timeout of one clone or pull attempt")
	rootCmd.PersistentFlags().Int("git-retries", contract.DefaultGitRetries, "Attempts per repository before giving up")
	rootCmd.PersistentFlags().String("git-retry-interval", contract.DefaultRetryInterval.String(), "First wait between attempts, doubled each retry")
	rootCmd.PersistentFlags().Bool("temp-clone", false, "Remove each checkout after its scan is persisted")
	rootCmd.PersistentFlags().String("include", "", "Comma-separated repository path patterns to scan")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated repository path patterns to skip")
	rootCmd.PersistentFlags().String("db-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("db-connect", "", "Database connection string (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().Int("db-max-open-conns", contract.DefaultMaxOpenConns, "Maximum open database connections")
	rootCmd.PersistentFlags().Int("db-max-idle-conns", contract.DefaultMaxIdleConns, "Maximum idle database connections")
	rootCmd.PersistentFlags().Int("batch-size", contract.DefaultBatchSize, "Rows per batched insert")
	rootCmd.PersistentFlags().String("report-dir", "", "Directory for Parquet session reports (empty disables reports)")
	rootCmd.PersistentFlags().String("report-bucket", "", "Bucket to upload reports to")
	rootCmd.PersistentFlags().String("report-endpoint", "", "S3 compatible endpoint for report uploads")
	rootCmd.PersistentFlags().String("report-access-key", "", "Access key for report uploads")
	rootCmd.PersistentFlags().String("report-secret-key", "", "Secret key for report uploads (prefer TESTHUB_REPORT_SECRET_KEY)")
	rootCmd.PersistentFlags().Bool("report-use-ssl", false, "Use TLS for report uploads")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultStatusLimit, "Number of rows to display")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("schedule", contract.DefaultSchedule, "Cron expression or descriptor for recurring scans")
	serveCmd.Flags().String("http-addr", contract.DefaultHTTPAddr, "Listen address of the status and trigger endpoints")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of migrateCmd to Viper
	migrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(migrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding migrate flags", err)
	}
}
