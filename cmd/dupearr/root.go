package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/logger"
)

var (
	flagLogLevel       string
	flagDataDir        string
	flagDatabasePath   string
	flagWorkers        int
	flagCatalogTimeout time.Duration
	flagComposePath    string
	flagComposeEnvPath string
	flagMappingsPath   string
	flagPort           string
	flagScanCron       string
	flagRetentionDays  int
)

var rootCmd = &cobra.Command{
	Use:   "dupearr",
	Short: "Find duplicate media folders across your libraries",
	Long: `Dupearr scans media libraries for folders that look like duplicates of
each other, resolves each group against Sonarr and Radarr to find the
official copy, and writes an advisory cleanup script for review.

Dupearr never deletes anything itself.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		config.ApplyFlags(config.FlagOverrides{
			LogLevel:       &flagLogLevel,
			DataDir:        &flagDataDir,
			DatabasePath:   &flagDatabasePath,
			Workers:        &flagWorkers,
			CatalogTimeout: &flagCatalogTimeout,
			ComposePath:    &flagComposePath,
			ComposeEnvPath: &flagComposeEnvPath,
			MappingsPath:   &flagMappingsPath,
			Port:           &flagPort,
			ScanCron:       &flagScanCron,
			RetentionDays:  &flagRetentionDays,
		})
		cfg := config.Get()
		logger.SetLevel(cfg.LogLevel)
		if err := cfg.LoadCatalogFile(filepath.Join(cfg.DataDir, "config.json")); err != nil {
			logger.Warnf("Catalog config not loaded: %v", err)
		}
		if err := cfg.LoadProtectedDirs(filepath.Join(cfg.DataDir, "protected_dirs.json")); err != nil {
			logger.Warnf("Protected directories not loaded: %v", err)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "", "log verbosity: debug, info, warn, error")
	pf.StringVar(&flagDataDir, "data-dir", "", "directory for persistent data (database, logs)")
	pf.StringVar(&flagDatabasePath, "database-path", "", "run-history database path")
	pf.IntVar(&flagWorkers, "workers", 0, "concurrent root scans (0 = available parallelism)")
	pf.DurationVar(&flagCatalogTimeout, "catalog-timeout", 0, "per-request catalog API timeout")
	pf.StringVar(&flagComposePath, "compose", "", "compose manifest for volume mappings and media roots")
	pf.StringVar(&flagComposeEnvPath, "compose-env", "", "env file with variable values for the manifest")
	pf.StringVar(&flagMappingsPath, "mappings", "", "custom folder-to-catalog mappings file")
	pf.StringVar(&flagPort, "port", "", "serve-mode HTTP listen port")
	pf.StringVar(&flagScanCron, "scan-cron", "", "cron expression for scheduled scans in serve mode")
	// -1 means "not set" so an explicit 0 can still disable pruning.
	pf.IntVar(&flagRetentionDays, "retention-days", -1, "days of run history to keep (0 disables pruning)")
}
