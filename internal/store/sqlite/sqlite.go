// Package sqlite stores imported entities in a local SQLite file using the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/JonMunkholm/qbimport/internal/core"
	"github.com/JonMunkholm/qbimport/internal/schema"
)

// Store wraps a database/sql handle on a SQLite file.
type Store struct {
	DB   *sql.DB
	path string
}

var _ core.Store = (*Store)(nil)

// New opens (creating if needed) the database at path. Foreign keys are
// enforced and writers wait on a busy database instead of failing at once.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "qbimport.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{DB: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

func (s *Store) Programs() core.Repository[core.Program] {
	return repo[core.Program]{db: s.DB, table: schema.Programs}
}

func (s *Store) Courses() core.Repository[core.Course] {
	return repo[core.Course]{db: s.DB, table: schema.Courses}
}

func (s *Store) Subjects() core.Repository[core.Subject] {
	return repo[core.Subject]{db: s.DB, table: schema.Subjects}
}

func (s *Store) Competencies() core.Repository[core.Competency] {
	return repo[core.Competency]{db: s.DB, table: schema.Competencies}
}

func (s *Store) Questions() core.Repository[core.Question] {
	return repo[core.Question]{db: s.DB, table: schema.Questions}
}

func (s *Store) Options() core.Repository[core.Option] {
	return repo[core.Option]{db: s.DB, table: schema.Options}
}

// Migrate creates the entity tables.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema.DDL(schema.SQLite) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit()
}

// Reset deletes every entity, children first.
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range schema.TableNames {
		if _, err := s.DB.ExecContext(ctx, "DELETE FROM "+name); err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
	}
	return nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

type repo[T any] struct {
	db    *sql.DB
	table schema.Table[T]
}

func (r repo[T]) Filter(ctx context.Context, c core.Criteria) ([]T, error) {
	query, args, err := r.table.SelectSQL(schema.SQLite, c)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		v, err := r.table.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table.Name, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r repo[T]) Create(ctx context.Context, v T) (T, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, r.table.InsertSQL(schema.SQLite), r.table.Args(id, v)...); err != nil {
		var zero T
		return zero, fmt.Errorf("insert %s: %w", r.table.Name, err)
	}
	return r.table.WithID(v, id), nil
}
