// Package config loads application configuration from environment variables,
// an optional catalog config file, and command-line flag overrides.
package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// CatalogConfig holds the connection settings for one catalog service.
type CatalogConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

// Config holds all application configuration. All fields have sensible
// defaults if environment variables are not set.
type Config struct {
	// LogLevel controls logging verbosity: "debug", "info", "warn", "error"
	// (default: "info")
	LogLevel string

	// DataDir is the directory for persistent data (history database, logs)
	DataDir string

	// DatabasePath is the SQLite run-history database (default: <DataDir>/dupearr.db)
	DatabasePath string

	// LogDir is the directory for rotated log files (default: <DataDir>/logs)
	LogDir string

	// Workers bounds the number of concurrent root-directory scans
	// (default: 0 = available parallelism)
	Workers int

	// CatalogTimeout is the per-request timeout for catalog API calls
	// (default: 10s). Catalog failures degrade to empty results; they are
	// never retried within a run.
	CatalogTimeout time.Duration

	// Sonarr and Radarr describe the two catalog services. API keys resolve
	// in order: environment variable, catalog config file, stored setting.
	Sonarr CatalogConfig
	Radarr CatalogConfig

	// ComposePath is an orchestration manifest used to discover volume
	// mappings and media roots. Empty means "search common locations".
	ComposePath string

	// ComposeEnvPath is the .env file with variable values for the manifest.
	// Empty means "next to the manifest, if present".
	ComposeEnvPath string

	// MappingsPath is an optional JSON file of custom folder-to-catalog
	// mappings merged over the fetched catalog index.
	MappingsPath string

	// ProtectedDirs are root directories that must never be flagged as
	// duplicate targets.
	ProtectedDirs []string

	// ReportPath is the default duplicate report location.
	ReportPath string

	// ResolvedReportPath is the default location for the resolved report.
	ResolvedReportPath string

	// ScriptPath is the default cleanup script location.
	ScriptPath string

	// Port is the serve-mode HTTP listen port (default: 3094)
	Port string

	// ScanCron is an optional cron expression for scheduled scans in serve
	// mode. Empty disables scheduling.
	ScanCron string

	// ScanRoots are the directories scheduled scans cover.
	ScanRoots []string

	// NotifyURLs are shoutrrr URLs notified on run completion.
	NotifyURLs []string

	// RetentionDays is the number of days to keep run history (default: 90).
	// 0 disables pruning.
	RetentionDays int
}

var cfg *Config

// Load reads configuration from environment variables with sensible defaults.
// Should be called once at startup, before Get.
func Load() *Config {
	// Keys may live in a .env next to the working directory, as the catalog
	// services' own deployments commonly do.
	loadDotEnv(".env")

	dataDir := getEnvOrDefault("DUPEARR_DATA_DIR", "")
	if dataDir == "" {
		if info, err := os.Stat("/config"); err == nil && info.IsDir() {
			dataDir = "/config"
		} else if cwd, err := os.Getwd(); err == nil {
			dataDir = filepath.Join(cwd, "config")
		} else {
			dataDir = "./config"
		}
	}
	if abs, err := filepath.Abs(dataDir); err == nil {
		dataDir = abs
	}

	dbPath := getEnvOrDefault("DUPEARR_DATABASE_PATH", "")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "dupearr.db")
	}

	cfg = &Config{
		LogLevel:           strings.ToLower(getEnvOrDefault("DUPEARR_LOG_LEVEL", "info")),
		DataDir:            dataDir,
		DatabasePath:       dbPath,
		LogDir:             filepath.Join(dataDir, "logs"),
		Workers:            getEnvIntOrDefault("DUPEARR_SCAN_WORKERS", 0),
		CatalogTimeout:     getEnvDurationOrDefault("DUPEARR_CATALOG_TIMEOUT", 10*time.Second),
		ComposePath:        getEnvOrDefault("DUPEARR_COMPOSE_PATH", ""),
		ComposeEnvPath:     getEnvOrDefault("DUPEARR_COMPOSE_ENV_PATH", ""),
		MappingsPath:       getEnvOrDefault("DUPEARR_MAPPINGS_PATH", ""),
		ProtectedDirs:      splitList(os.Getenv("DUPEARR_PROTECTED_DIRS")),
		ReportPath:         getEnvOrDefault("DUPEARR_REPORT_PATH", "duplicate_report.txt"),
		ResolvedReportPath: getEnvOrDefault("DUPEARR_RESOLVED_REPORT_PATH", "updated_duplicate_report.txt"),
		ScriptPath:         getEnvOrDefault("DUPEARR_SCRIPT_PATH", "cleanup_script.sh"),
		Port:               getEnvOrDefault("DUPEARR_PORT", "3094"),
		ScanCron:           getEnvOrDefault("DUPEARR_SCAN_CRON", ""),
		ScanRoots:          splitList(os.Getenv("DUPEARR_SCAN_ROOTS")),
		NotifyURLs:         splitList(os.Getenv("DUPEARR_NOTIFY_URLS")),
		RetentionDays:      getEnvIntOrDefault("DUPEARR_RETENTION_DAYS", 90),
		Sonarr: CatalogConfig{
			URL:    getEnvOrDefault("SONARR_URL", "http://localhost:8989"),
			APIKey: os.Getenv("SONARR_API_KEY"),
		},
		Radarr: CatalogConfig{
			URL:    getEnvOrDefault("RADARR_URL", "http://localhost:7878"),
			APIKey: os.Getenv("RADARR_API_KEY"),
		},
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		cfg.LogLevel = "info"
	}

	return cfg
}

// catalogFile mirrors the on-disk config.json layout.
type catalogFile struct {
	Sonarr CatalogConfig `json:"sonarr"`
	Radarr CatalogConfig `json:"radarr"`
}

// LoadCatalogFile merges catalog URLs and API keys from a JSON config file.
// Environment-provided keys take precedence over file values. A missing file
// is not an error; a malformed one is.
func (c *Config) LoadCatalogFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read catalog config %s: %w", path, err)
	}

	var cf catalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse catalog config %s: %w", path, err)
	}

	if cf.Sonarr.URL != "" {
		c.Sonarr.URL = strings.TrimRight(cf.Sonarr.URL, "/")
	}
	if cf.Radarr.URL != "" {
		c.Radarr.URL = strings.TrimRight(cf.Radarr.URL, "/")
	}
	if c.Sonarr.APIKey == "" {
		c.Sonarr.APIKey = cf.Sonarr.APIKey
	}
	if c.Radarr.APIKey == "" {
		c.Radarr.APIKey = cf.Radarr.APIKey
	}
	return nil
}

// LoadProtectedDirs appends protected roots from a JSON array file. A missing
// file leaves the configured list unchanged.
func (c *Config) LoadProtectedDirs(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read protected dirs %s: %w", path, err)
	}

	var dirs []string
	if err := json.Unmarshal(data, &dirs); err != nil {
		return fmt.Errorf("failed to parse protected dirs %s: %w", path, err)
	}

	c.ProtectedDirs = append(c.ProtectedDirs, dirs...)
	return nil
}

// Get returns the current configuration. Panics if Load hasn't been called.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting allows tests to set the global config without calling Load.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	return &Config{
		LogLevel:       "debug",
		DataDir:        "/tmp/dupearr-test",
		DatabasePath:   "/tmp/dupearr-test/dupearr.db",
		LogDir:         "/tmp/dupearr-test/logs",
		CatalogTimeout: 10 * time.Second,
		Port:           "3094",
		RetentionDays:  90,
		Sonarr:         CatalogConfig{URL: "http://localhost:8989"},
		Radarr:         CatalogConfig{URL: "http://localhost:7878"},
	}
}

// FlagOverrides holds command-line flag values that override environment
// variables. Only non-nil, non-zero values apply.
type FlagOverrides struct {
	LogLevel       *string
	DataDir        *string
	DatabasePath   *string
	Workers        *int
	CatalogTimeout *time.Duration
	ComposePath    *string
	ComposeEnvPath *string
	MappingsPath   *string
	Port           *string
	ScanCron       *string
	RetentionDays  *int
}

// ApplyFlags applies flag overrides to the loaded configuration.
func ApplyFlags(flags FlagOverrides) {
	if cfg == nil {
		return
	}

	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*flags.LogLevel)
	}
	if flags.DataDir != nil && *flags.DataDir != "" {
		cfg.DataDir = *flags.DataDir
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "dupearr.db")
		cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	}
	if flags.DatabasePath != nil && *flags.DatabasePath != "" {
		cfg.DatabasePath = *flags.DatabasePath
	}
	if flags.Workers != nil && *flags.Workers > 0 {
		cfg.Workers = *flags.Workers
	}
	if flags.CatalogTimeout != nil && *flags.CatalogTimeout != 0 {
		cfg.CatalogTimeout = *flags.CatalogTimeout
	}
	if flags.ComposePath != nil && *flags.ComposePath != "" {
		cfg.ComposePath = *flags.ComposePath
	}
	if flags.ComposeEnvPath != nil && *flags.ComposeEnvPath != "" {
		cfg.ComposeEnvPath = *flags.ComposeEnvPath
	}
	if flags.MappingsPath != nil && *flags.MappingsPath != "" {
		cfg.MappingsPath = *flags.MappingsPath
	}
	if flags.Port != nil && *flags.Port != "" {
		cfg.Port = *flags.Port
	}
	if flags.ScanCron != nil && *flags.ScanCron != "" {
		cfg.ScanCron = *flags.ScanCron
	}
	if flags.RetentionDays != nil && *flags.RetentionDays >= 0 {
		cfg.RetentionDays = *flags.RetentionDays
	}
}

// loadDotEnv loads KEY=VALUE pairs from a dotenv file into the process
// environment, without overriding variables that are already set. Missing
// files are ignored.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, strings.TrimSpace(value))
		}
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
