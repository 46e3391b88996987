package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/testhub/core"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/internal/gitclient"
	"github.com/huangsam/testhub/internal/report"
	"github.com/huangsam/testhub/internal/scheduler"
	"github.com/huangsam/testhub/internal/store"
	"github.com/huangsam/testhub/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "testhub",
	Short:              "Sync Java repositories and track their test case annotations.",
	Long:               `Testhub keeps a hub of Java repositories up to date, extracts test case annotations from their tests and records every scan.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	_ = godotenv.Load() // A missing .env is fine

	// Set environment variable prefix
	viper.SetEnvPrefix("TESTHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("hub-path", contract.DefaultHubPath)
	viper.SetDefault("db-backend", schema.SQLiteBackend)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("limit", contract.DefaultStatusLimit)
	viper.SetDefault("batch-size", contract.DefaultBatchSize)
	viper.SetDefault("schedule", contract.DefaultSchedule)
	viper.SetDefault("http-addr", contract.DefaultHTTPAddr)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".testhub")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup merges every config source and validates it into cfg.
func sharedSetup(_ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	return contract.ProcessAndValidate(cfg, input)
}

// repoSetup is sharedSetup for commands that need at least one repository.
func repoSetup(cmd *cobra.Command, args []string) error {
	if err := sharedSetup(cmd, args); err != nil {
		return err
	}
	return cfg.RequireRepositories()
}

// pipeline is everything a scan run needs, wired from cfg.
type pipeline struct {
	store     contract.ScanStore
	scheduler *scheduler.Scheduler
}

// newPipeline opens the store and wires the hub, scanner and reporter into a scheduler.
// The caller closes the store.
func newPipeline() (*pipeline, error) {
	cache, err := core.NewParseCache(core.DefaultParseCacheSize)
	if err != nil {
		return nil, err
	}
	scanner, err := core.NewScannerFromConfig(cfg, cache)
	if err != nil {
		return nil, err
	}
	reporter, err := report.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg)
	if err != nil {
		return nil, err
	}
	hub := gitclient.NewHubManagerFromConfig(cfg, contract.NewLocalGitClient())
	sched := scheduler.NewFromConfig(cfg, scheduler.Deps{
		Hub:      hub,
		Scanner:  scanner,
		Store:    st,
		Reporter: reporter,
	})
	return &pipeline{store: st, scheduler: sched}, nil
}

func (p *pipeline) close() {
	if err := p.store.Close(); err != nil {
		contract.LogWarn("Cannot close store", err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
