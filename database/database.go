package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	recursive INTEGER NOT NULL,
	strictness INTEGER NOT NULL,
	algorithm TEXT,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	hashed INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS similarity_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	representative TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS group_files (
	group_id INTEGER NOT NULL REFERENCES similarity_groups(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	size INTEGER,
	keep INTEGER NOT NULL DEFAULT 0,
	UNIQUE(group_id, path)
);
CREATE INDEX IF NOT EXISTS idx_groups_run ON similarity_groups(run_id);
CREATE INDEX IF NOT EXISTS idx_group_files_path ON group_files(path);`

// RunReport is everything exported for one finished run
type RunReport struct {
	ID         string
	Root       string
	Recursive  bool
	Strictness int
	Algorithm  string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Hashed     int
	Failed     int
	Groups     []GroupReport
}

// GroupReport is one similarity group inside a report
type GroupReport struct {
	Representative string
	Files          []FileReport
}

// FileReport is one member of a group. Keep marks the suggested survivor.
type FileReport struct {
	Path string
	Size int64
	Keep bool
}

// RunStats summarises a stored run
type RunStats struct {
	Status string
	Groups int
	Files  int
	Kept   int
}

// InitDatabase opens the report database at dbPath and creates the schema if needed
func InitDatabase(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	return db, nil
}

// StoreRun writes a report in one transaction. Storing the same run ID again
// replaces the earlier copy.
func StoreRun(ctx context.Context, db *sql.DB, report RunReport) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, report.ID); err != nil {
		return fmt.Errorf("clear run %s: %w", report.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, root, recursive, strictness, algorithm, status, started_at, finished_at, total, hashed, failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.Root,
		report.Recursive,
		report.Strictness,
		report.Algorithm,
		report.Status,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.Total,
		report.Hashed,
		report.Failed,
	)
	if err != nil {
		return fmt.Errorf("cannot insert run %s: %w", report.ID, err)
	}

	groupStmt, err := tx.PrepareContext(ctx, `INSERT INTO similarity_groups (run_id, representative) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare group statement: %w", err)
	}
	defer groupStmt.Close()

	fileStmt, err := tx.PrepareContext(ctx, `INSERT INTO group_files (group_id, path, size, keep) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare file statement: %w", err)
	}
	defer fileStmt.Close()

	for _, group := range report.Groups {
		res, execErr := groupStmt.ExecContext(ctx, report.ID, group.Representative)
		if execErr != nil {
			err = fmt.Errorf("cannot insert group %s: %w", group.Representative, execErr)
			return err
		}
		groupID, idErr := res.LastInsertId()
		if idErr != nil {
			err = fmt.Errorf("cannot read group id: %w", idErr)
			return err
		}
		for _, file := range group.Files {
			if _, err = fileStmt.ExecContext(ctx, groupID, file.Path, file.Size, file.Keep); err != nil {
				return fmt.Errorf("cannot insert file %s: %w", file.Path, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

// GetRunStats retrieves counts for a stored run
func GetRunStats(ctx context.Context, db *sql.DB, runID string) (*RunStats, error) {
	var stats RunStats
	err := db.QueryRowContext(ctx, `SELECT status FROM runs WHERE id = ?`, runID).Scan(&stats.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM similarity_groups WHERE run_id = ?`, runID).Scan(&stats.Groups)
	if err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(f.keep), 0)
		FROM group_files f JOIN similarity_groups g ON g.id = f.group_id
		WHERE g.run_id = ?`, runID).Scan(&stats.Files, &stats.Kept)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	return &stats, nil
}

// QueryGroupFiles returns the stored paths of a run keyed by group representative
func QueryGroupFiles(ctx context.Context, db *sql.DB, runID string) (map[string][]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT g.representative, f.path
		FROM group_files f JOIN similarity_groups g ON g.id = f.group_id
		WHERE g.run_id = ?
		ORDER BY g.id, f.rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group files: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var rep, path string
		if err := rows.Scan(&rep, &path); err != nil {
			return nil, err
		}
		out[rep] = append(out[rep], path)
	}
	return out, rows.Err()
}
