package db

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Register pure-Go SQLite driver for database/sql

	"github.com/mescon/Dupearr/internal/logger"
)

// Retry parameters for operations hitting SQLITE_BUSY. Backoff doubles each
// attempt starting from RetryDelay.
const (
	MaxRetries = 5
	RetryDelay = 100 * time.Millisecond
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository is the run-history and settings store.
type Repository struct {
	DB *sql.DB
}

// NewRepository opens (creating if needed) the SQLite database at dbPath,
// applies pragmas and any pending schema migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL gives concurrent readers plus one writer; keeping the pool small
	// keeps SQLite lock contention down.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &Repository{DB: conn}
	if err := repo.applyPragmas(); err != nil {
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := repo.runMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := repo.checkIntegrity(); err != nil {
		// Non-fatal; the database may need manual attention.
		logger.Errorf("Warning: database integrity check failed: %v", err)
	}

	return repo, nil
}

func (r *Repository) applyPragmas() error {
	// Refusing to run without these would hide corruption and deadlocks, so
	// a failure here is fatal.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=30000",
	} {
		if _, err := r.DB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set critical pragma %s: %w", pragma, err)
		}
	}

	// Tuning pragmas; not every build supports all of them.
	for _, pragma := range []string{
		"PRAGMA synchronous=FULL",
		"PRAGMA auto_vacuum=INCREMENTAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=-8000",
	} {
		if _, err := r.DB.Exec(pragma); err != nil {
			logger.Debugf("Failed to set optional pragma %s: %v", pragma, err)
		}
	}
	return nil
}

func (r *Repository) checkIntegrity() error {
	var result string
	if err := r.DB.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	logger.Infof("✓ Database integrity check passed")
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.DB.Close()
}

// GracefulClose folds the WAL into the main database file before closing.
// Call on shutdown.
func (r *Repository) GracefulClose() error {
	logger.Infof("Database: initiating graceful shutdown...")

	if _, err := r.DB.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Warnf("Shutdown WAL checkpoint failed: %v", err)
	} else {
		logger.Debugf("✓ WAL checkpoint completed")
	}

	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	logger.Infof("✓ Database shutdown complete")
	return nil
}

// Checkpoint runs a passive, non-blocking WAL checkpoint. Call periodically
// to bound WAL growth between maintenance windows.
func (r *Repository) Checkpoint() error {
	if _, err := r.DB.Exec("PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// RunMaintenance prunes finished runs past the retention window and reclaims
// space. retentionDays of zero keeps history forever.
func (r *Repository) RunMaintenance(retentionDays int) error {
	logger.Infof("Starting database maintenance...")

	if retentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
		res, err := r.DB.Exec(
			"DELETE FROM runs WHERE status IN ('completed', 'failed') AND completed_at < ?", cutoff)
		if err != nil {
			logger.Errorf("Failed to prune old runs: %v", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			logger.Infof("Pruned %d old runs", n)
		}

		// Groups cascade from runs; this catches orphans left by older
		// schema versions.
		res, err = r.DB.Exec("DELETE FROM duplicate_groups WHERE run_id NOT IN (SELECT id FROM runs)")
		if err != nil {
			logger.Errorf("Failed to prune orphaned groups: %v", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			logger.Infof("Pruned %d orphaned duplicate groups", n)
		}

		res, err = r.DB.Exec("DELETE FROM cleanup_actions WHERE run_id NOT IN (SELECT id FROM runs)")
		if err != nil {
			logger.Errorf("Failed to prune orphaned actions: %v", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			logger.Infof("Pruned %d orphaned cleanup actions", n)
		}
	}

	for _, op := range []struct {
		name    string
		sql     string
		logWarn bool
	}{
		{"incremental vacuum", "PRAGMA incremental_vacuum", true},
		{"database analysis", "ANALYZE", true},
		{"WAL checkpoint", "PRAGMA wal_checkpoint(TRUNCATE)", false},
	} {
		if _, err := r.DB.Exec(op.sql); err != nil {
			if op.logWarn {
				logger.Errorf("Failed to run %s: %v", op.name, err)
			} else {
				logger.Debugf("%s failed (might not be applicable): %v", op.name, err)
			}
			continue
		}
		logger.Debugf("%s completed", op.name)
	}

	logger.Infof("✓ Database maintenance completed")
	return nil
}

// runMigrations applies every embedded migration file whose version number is
// above the highest recorded in schema_migrations. Files are named
// NNN_description.sql and applied in lexical order, one transaction each.
func (r *Repository) runMigrations() error {
	if _, err := r.DB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := r.DB.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	files, err := listMigrations()
	if err != nil {
		return err
	}
	logger.Debugf("Found %d embedded migration files", len(files))

	for _, file := range files {
		var version int
		if _, err := fmt.Sscanf(file, "%d_", &version); err != nil {
			logger.Errorf("Skipping invalid migration file: %s", file)
			continue
		}
		if version <= current {
			continue
		}
		logger.Infof("Applying migration: %s", file)
		if err := r.applyMigration(file, version); err != nil {
			return err
		}
	}
	return nil
}

func listMigrations() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repository) applyMigration(file string, version int) error {
	content, err := migrationsFS.ReadFile("migrations/" + file)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", file, err)
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", file, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration version %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", file, err)
	}
	tx = nil // prevent deferred rollback after successful commit
	return nil
}
