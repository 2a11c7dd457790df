// Package sqlite provides the SQLite-backed run journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/simlab/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/simlab/internal/storage"
	"github.com/louisbranch/simlab/internal/storage/cursor"
	"github.com/louisbranch/simlab/internal/storage/filter"
	"github.com/louisbranch/simlab/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const runColumns = `id, model, epoch, trials, params, created_at`

// Store persists run inputs in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite journal at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutRun journals one run.
func (s *Store) PutRun(ctx context.Context, run storage.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	run.ID = strings.TrimSpace(run.ID)
	run.Model = strings.TrimSpace(run.Model)
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(run.Params) == 0 {
		run.Params = []byte("{}")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Model,
		int64(run.Epoch),
		run.Trials,
		string(run.Params),
		toMillis(run.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put run: %w", err)
	}
	return nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return storage.Run{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Run{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Run{}, fmt.Errorf("run id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Run{}, storage.ErrNotFound
		}
		return storage.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns one page of runs matching filter.
func (s *Store) ListRuns(ctx context.Context, filterStr string, pageSize int, pageToken string) (storage.RunPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RunPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RunPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.RunPage{}, fmt.Errorf("page size must be greater than zero")
	}
	cond, err := filter.Parse(filterStr)
	if err != nil {
		return storage.RunPage{}, fmt.Errorf("%w: %w", storage.ErrInvalidFilter, err)
	}

	var (
		where []string
		args  []any
	)
	if !cond.Empty() {
		where = append(where, cond.Clause)
		args = append(args, cond.Params...)
	}
	if token := strings.TrimSpace(pageToken); token != "" {
		c, err := cursor.Decode(token)
		if err == nil {
			err = cursor.ValidateFilterHash(c, filterStr)
		}
		if err != nil {
			return storage.RunPage{}, fmt.Errorf("%w: %w", storage.ErrInvalidPageToken, err)
		}
		where = append(where, "id > ?")
		args = append(args, c.After)
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.RunPage{}, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	page := storage.RunPage{Runs: make([]storage.Run, 0, pageSize)}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return storage.RunPage{}, fmt.Errorf("list runs: %w", err)
		}
		page.Runs = append(page.Runs, run)
	}
	if err := rows.Err(); err != nil {
		return storage.RunPage{}, fmt.Errorf("list runs: %w", err)
	}
	if len(page.Runs) > pageSize {
		page.Runs = page.Runs[:pageSize]
		token, err := cursor.Encode(cursor.New(page.Runs[pageSize-1].ID, filterStr))
		if err != nil {
			return storage.RunPage{}, fmt.Errorf("list runs: %w", err)
		}
		page.NextPageToken = token
	}
	return page, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (storage.Run, error) {
	var (
		run       storage.Run
		epoch     int64
		params    string
		createdAt int64
	)
	if err := row.Scan(&run.ID, &run.Model, &epoch, &run.Trials, &params, &createdAt); err != nil {
		return storage.Run{}, err
	}
	run.Epoch = uint32(epoch)
	run.Params = []byte(params)
	run.CreatedAt = fromMillis(createdAt)
	return run, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.RunStore = (*Store)(nil)
