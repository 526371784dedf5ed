package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mescon/Dupearr/internal/domain"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one row of run history.
type Run struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	Roots          []string   `json:"roots"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	FoldersIndexed int        `json:"folders_indexed"`
	FilesIndexed   int        `json:"files_indexed"`
	GroupsFound    int        `json:"groups_found"`
}

// RecordRunStart inserts a new run in the running state.
func (r *Repository) RecordRunStart(runID, kind string, roots []string) error {
	_, err := r.ExecWithRetry(
		"INSERT INTO runs (id, kind, status, roots, started_at) VALUES (?, ?, ?, ?, ?)",
		runID, kind, StatusRunning, strings.Join(roots, "\n"), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// CompleteRun marks a run as completed or failed and records its statistics.
func (r *Repository) CompleteRun(runID, status, errMsg string, foldersIndexed, filesIndexed, groupsFound int) error {
	result, err := r.ExecWithRetry(
		`UPDATE runs SET status = ?, error = ?, completed_at = ?,
		 folders_indexed = ?, files_indexed = ?, groups_found = ? WHERE id = ?`,
		status, errMsg, time.Now().Format(time.RFC3339),
		foldersIndexed, filesIndexed, groupsFound, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// InsertGroups records the duplicate groups found by a run, one row per group
// with the full group serialized as JSON.
func (r *Repository) InsertGroups(runID string, groups []domain.DuplicateGroup) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(
		"INSERT INTO duplicate_groups (run_id, base_folder, group_json) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare group insert: %w", err)
	}
	defer stmt.Close()

	for i := range groups {
		data, err := json.Marshal(&groups[i])
		if err != nil {
			return fmt.Errorf("failed to marshal group %q: %w", groups[i].BaseFolder, err)
		}
		if _, err := stmt.Exec(runID, groups[i].BaseFolder, string(data)); err != nil {
			return fmt.Errorf("failed to insert group %q: %w", groups[i].BaseFolder, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit groups: %w", err)
	}
	tx = nil
	return nil
}

// InsertActions records the advisory cleanup actions produced for a run, one
// row per file.
func (r *Repository) InsertActions(runID string, actions []domain.CleanupAction) error {
	if len(actions) == 0 {
		return nil
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

	stmt, err := tx.Prepare(
		`INSERT INTO cleanup_actions (run_id, kind, path, size, managed, managed_by, rationale)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare action insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range actions {
		if _, err := stmt.Exec(runID, string(a.Kind), a.Path, a.Size, a.Managed, a.ManagedBy, a.Rationale); err != nil {
			return fmt.Errorf("failed to insert action for %q: %w", a.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit actions: %w", err)
	}
	tx = nil
	return nil
}

// GetRunActions returns the cleanup actions recorded for a run, in insertion
// order.
func (r *Repository) GetRunActions(runID string) ([]domain.CleanupAction, error) {
	rows, err := r.QueryWithRetry(
		`SELECT kind, path, size, managed, managed_by, rationale
		 FROM cleanup_actions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.CleanupAction
	for rows.Next() {
		var a domain.CleanupAction
		var kind string
		var managedBy, rationale sql.NullString
		if err := rows.Scan(&kind, &a.Path, &a.Size, &a.Managed, &managedBy, &rationale); err != nil {
			return nil, fmt.Errorf("failed to scan action row: %w", err)
		}
		a.Kind = domain.ActionKind(kind)
		a.ManagedBy = managedBy.String
		a.Rationale = rationale.String
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// GetRun returns a single run by ID, or nil if not found.
func (r *Repository) GetRun(runID string) (*Run, error) {
	rows, err := r.QueryWithRetry(
		`SELECT id, kind, status, roots, started_at, completed_at, error,
		 folders_indexed, files_indexed, groups_found FROM runs WHERE id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.QueryWithRetry(
		`SELECT id, kind, status, roots, started_at, completed_at, error,
		 folders_indexed, files_indexed, groups_found
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRunGroups returns the duplicate groups recorded for a run, in insertion
// order.
func (r *Repository) GetRunGroups(runID string) ([]domain.DuplicateGroup, error) {
	rows, err := r.QueryWithRetry(
		"SELECT group_json FROM duplicate_groups WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.DuplicateGroup
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		var g domain.DuplicateGroup
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("failed to unmarshal group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var run Run
	var roots string
	var startedAt string
	var completedAt sql.NullString
	var errMsg sql.NullString

	if err := rows.Scan(&run.ID, &run.Kind, &run.Status, &roots, &startedAt,
		&completedAt, &errMsg, &run.FoldersIndexed, &run.FilesIndexed, &run.GroupsFound); err != nil {
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}

	if roots != "" {
		run.Roots = strings.Split(roots, "\n")
	}
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		run.StartedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			run.CompletedAt = &t
		}
	}
	run.Error = errMsg.String

	return &run, nil
}
