package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/mescon/Dupearr/internal/logger"
)

// isBusyError matches the lock-contention errors SQLite surfaces through the
// driver as strings.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// withBusyRetry runs op up to MaxRetries times, backing off exponentially
// from RetryDelay between attempts. Non-busy errors fail immediately.
func withBusyRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if err = op(); err == nil || !isBusyError(err) {
			return err
		}
		delay := RetryDelay * time.Duration(1<<attempt)
		logger.Debugf("Database busy, retrying in %v (attempt %d/%d)", delay, attempt+1, MaxRetries)
		time.Sleep(delay)
	}
	return err
}

// ExecWithRetry executes a statement, retrying on SQLITE_BUSY.
func (r *Repository) ExecWithRetry(query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := withBusyRetry(func() error {
		var execErr error
		result, execErr = r.DB.Exec(query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryWithRetry runs a query, retrying on SQLITE_BUSY.
func (r *Repository) QueryWithRetry(query string, args ...interface{}) (*sql.Rows, error) {
	var rows *sql.Rows
	err := withBusyRetry(func() error {
		var queryErr error
		rows, queryErr = r.DB.Query(query, args...)
		return queryErr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
