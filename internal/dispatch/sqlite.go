package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink stores every batch in one transaction, keyed by run.
type SQLiteSink struct {
	db    *sql.DB
	runID string
}

func OpenSQLite(path, runID string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db, runID: runID}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			size INTEGER NOT NULL,
			sent_at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS voxels (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			pos_x INTEGER NOT NULL,
			pos_y INTEGER NOT NULL,
			pos_z INTEGER NOT NULL,
			material TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS voxels_run_seq ON voxels(run_id, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteSink) SendBatch(ctx context.Context, batch Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch %d: %w", batch.Seq, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches(run_id, seq, size, sent_at) VALUES(?, ?, ?, ?)`,
		s.runID, int64(batch.Seq), len(batch.Records), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert batch %d: %w", batch.Seq, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO voxels(id, run_id, seq, name, x, y, z, pos_x, pos_y, pos_z, material)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare voxel insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range batch.Records {
		if _, err := stmt.ExecContext(ctx,
			rec.ID.String(), s.runID, int64(batch.Seq), rec.Name,
			rec.Coord.X, rec.Coord.Y, rec.Coord.Z,
			rec.Position.X, rec.Position.Y, rec.Position.Z,
			rec.Material,
		); err != nil {
			return fmt.Errorf("insert voxel %s: %w", rec.Name, err)
		}
	}
	return tx.Commit()
}

// CountVoxels returns how many voxels the run has stored.
func (s *SQLiteSink) CountVoxels(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voxels WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
