package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/freeeve/blockcensus/internal/census"
	"github.com/freeeve/blockcensus/internal/world"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run describes a saved census.
type Run struct {
	ID        int64
	CreatedAt time.Time
	YRange    world.YRange
	AllChunks bool
	Files     int   // region files submitted
	Processed int   // region files merged
	Dropped   int   // region files whose contribution was discarded
	Blocks    int64 // blocks counted
}

// Store is a SQLite census database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
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
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			y_start INTEGER NOT NULL,
			y_end INTEGER NOT NULL,
			all_chunks INTEGER NOT NULL,
			files INTEGER NOT NULL,
			processed INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			blocks INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS block_counts (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			block_type TEXT NOT NULL,
			y INTEGER NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, block_type, y)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_block_counts_type ON block_counts(block_type, y);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunFromResult fills a Run from a finished census.
func RunFromResult(res *census.Result, allChunks bool) Run {
	return Run{
		CreatedAt: time.Now().UTC(),
		YRange:    res.Counts.Range(),
		AllChunks: allChunks,
		Files:     res.Files,
		Processed: res.Processed,
		Dropped:   len(res.Dropped),
		Blocks:    res.Stats.Blocks,
	}
}

// SaveCensus stores acc under a new run and returns the run id. run.YRange
// is taken from acc.
func (s *Store) SaveCensus(ctx context.Context, run Run, acc *census.Accumulator) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	r := acc.Range()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs(created_at, y_start, y_end, all_chunks, files, processed, dropped, blocks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt.Format(time.RFC3339Nano), r.Start, r.End, boolInt(run.AllChunks),
		run.Files, run.Processed, run.Dropped, run.Blocks)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO block_counts(run_id, block_type, y, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	acc.Each(func(blockType string, counts []int64) bool {
		for i, n := range counts {
			if n == 0 {
				continue
			}
			if _, err = stmt.ExecContext(ctx, id, blockType, r.Start+i, n); err != nil {
				err = fmt.Errorf("insert %s y=%d: %w", blockType, r.Start+i, err)
				return false
			}
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun returns the most recently saved run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` ORDER BY id DESC LIMIT 1`)
	return scanRun(row)
}

// Runs lists every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// LoadCensus rebuilds the accumulator saved under run id.
func (s *Store) LoadCensus(ctx context.Context, id int64) (*census.Accumulator, Run, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, run, err
	}
	acc, err := census.NewAccumulator(run.YRange)
	if err != nil {
		return nil, run, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT block_type, y, count FROM block_counts WHERE run_id = ?`, id)
	if err != nil {
		return nil, run, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			blockType string
			y         int
			n         int64
		)
		if err := rows.Scan(&blockType, &y, &n); err != nil {
			return nil, run, err
		}
		if !run.YRange.Contains(y) {
			return nil, run, fmt.Errorf("run %d: level %d outside %v", id, y, run.YRange)
		}
		if err := acc.Set(blockType, y, n); err != nil {
			return nil, run, fmt.Errorf("run %d: %w", id, err)
		}
	}
	return acc, run, rows.Err()
}

const selectRun = `SELECT id, created_at, y_start, y_end, all_chunks, files, processed, dropped, blocks FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run       Run
		createdAt string
		allChunks int
	)
	err := sc.Scan(&run.ID, &createdAt, &run.YRange.Start, &run.YRange.End, &allChunks,
		&run.Files, &run.Processed, &run.Dropped, &run.Blocks)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	if err != nil {
		return run, err
	}
	run.AllChunks = allChunks != 0
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	return run, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
