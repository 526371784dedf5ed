package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DUPEARR_LOG_LEVEL", "DUPEARR_DATA_DIR", "DUPEARR_DATABASE_PATH",
		"DUPEARR_SCAN_WORKERS", "DUPEARR_CATALOG_TIMEOUT", "DUPEARR_PORT",
		"DUPEARR_RETENTION_DAYS", "SONARR_URL", "RADARR_URL",
		"SONARR_API_KEY", "RADARR_API_KEY",
	} {
		os.Unsetenv(key)
	}

	c := Load()

	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
	if c.CatalogTimeout != 10*time.Second {
		t.Errorf("CatalogTimeout = %v, want 10s", c.CatalogTimeout)
	}
	if c.Port != "3094" {
		t.Errorf("Port = %q, want 3094", c.Port)
	}
	if c.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", c.RetentionDays)
	}
	if c.Sonarr.URL != "http://localhost:8989" {
		t.Errorf("Sonarr.URL = %q", c.Sonarr.URL)
	}
	if c.Radarr.URL != "http://localhost:7878" {
		t.Errorf("Radarr.URL = %q", c.Radarr.URL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DUPEARR_LOG_LEVEL", "DEBUG")
	t.Setenv("DUPEARR_SCAN_WORKERS", "8")
	t.Setenv("DUPEARR_CATALOG_TIMEOUT", "30s")
	t.Setenv("DUPEARR_SCAN_ROOTS", "/mnt/media, /mnt/archive")
	t.Setenv("SONARR_API_KEY", "env-key")

	c := Load()

	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", c.LogLevel)
	}
	if c.Workers != 8 {
		t.Errorf("Workers = %d, want 8", c.Workers)
	}
	if c.CatalogTimeout != 30*time.Second {
		t.Errorf("CatalogTimeout = %v, want 30s", c.CatalogTimeout)
	}
	if len(c.ScanRoots) != 2 || c.ScanRoots[1] != "/mnt/archive" {
		t.Errorf("ScanRoots = %v", c.ScanRoots)
	}
	if c.Sonarr.APIKey != "env-key" {
		t.Errorf("Sonarr.APIKey = %q", c.Sonarr.APIKey)
	}
}

func TestLoadInvalidLogLevel(t *testing.T) {
	t.Setenv("DUPEARR_LOG_LEVEL", "verbose")

	c := Load()
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info fallback", c.LogLevel)
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"sonarr": {"url": "http://sonarr:8989/", "api_key": "file-sonarr"},
		"radarr": {"url": "http://radarr:7878", "api_key": "file-radarr"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewTestConfig()
	if err := c.LoadCatalogFile(path); err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}

	if c.Sonarr.URL != "http://sonarr:8989" {
		t.Errorf("Sonarr.URL = %q, want trailing slash trimmed", c.Sonarr.URL)
	}
	if c.Sonarr.APIKey != "file-sonarr" {
		t.Errorf("Sonarr.APIKey = %q", c.Sonarr.APIKey)
	}
	if c.Radarr.APIKey != "file-radarr" {
		t.Errorf("Radarr.APIKey = %q", c.Radarr.APIKey)
	}
}

func TestLoadCatalogFileEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"sonarr": {"api_key": "file-key"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewTestConfig()
	c.Sonarr.APIKey = "env-key"
	if err := c.LoadCatalogFile(path); err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}

	if c.Sonarr.APIKey != "env-key" {
		t.Errorf("Sonarr.APIKey = %q, want env value kept", c.Sonarr.APIKey)
	}
}

func TestLoadCatalogFileMissing(t *testing.T) {
	c := NewTestConfig()
	if err := c.LoadCatalogFile(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}

func TestLoadCatalogFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewTestConfig()
	if err := c.LoadCatalogFile(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestLoadProtectedDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protected_dirs.json")
	if err := os.WriteFile(path, []byte(`["/mnt/media/films", "/mnt/media/television"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewTestConfig()
	c.ProtectedDirs = []string{"/mnt/keep"}
	if err := c.LoadProtectedDirs(path); err != nil {
		t.Fatalf("LoadProtectedDirs: %v", err)
	}

	if len(c.ProtectedDirs) != 3 {
		t.Fatalf("ProtectedDirs = %v, want 3 entries", c.ProtectedDirs)
	}
	if c.ProtectedDirs[2] != "/mnt/media/television" {
		t.Errorf("ProtectedDirs[2] = %q", c.ProtectedDirs[2])
	}
}

func TestApplyFlags(t *testing.T) {
	SetForTesting(NewTestConfig())

	level := "error"
	workers := 4
	timeout := 5 * time.Second
	port := "8080"
	ApplyFlags(FlagOverrides{
		LogLevel:       &level,
		Workers:        &workers,
		CatalogTimeout: &timeout,
		Port:           &port,
	})

	c := Get()
	if c.LogLevel != "error" {
		t.Errorf("LogLevel = %q", c.LogLevel)
	}
	if c.Workers != 4 {
		t.Errorf("Workers = %d", c.Workers)
	}
	if c.CatalogTimeout != 5*time.Second {
		t.Errorf("CatalogTimeout = %v", c.CatalogTimeout)
	}
	if c.Port != "8080" {
		t.Errorf("Port = %q", c.Port)
	}
}

func TestApplyFlagsEmptyValuesIgnored(t *testing.T) {
	SetForTesting(NewTestConfig())

	empty := ""
	zero := 0
	ApplyFlags(FlagOverrides{LogLevel: &empty, Workers: &zero})

	c := Get()
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want unchanged", c.LogLevel)
	}
	if c.Workers != 0 {
		t.Errorf("Workers = %d, want unchanged", c.Workers)
	}
}

func TestDataDirFlagRedirectsPaths(t *testing.T) {
	SetForTesting(NewTestConfig())

	dataDir := "/srv/dupearr"
	ApplyFlags(FlagOverrides{DataDir: &dataDir})

	c := Get()
	if c.DatabasePath != filepath.Join(dataDir, "dupearr.db") {
		t.Errorf("DatabasePath = %q", c.DatabasePath)
	}
	if c.LogDir != filepath.Join(dataDir, "logs") {
		t.Errorf("LogDir = %q", c.LogDir)
	}
}
