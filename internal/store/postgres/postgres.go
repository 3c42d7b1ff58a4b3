// Package postgres stores imported entities in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/qbimport/internal/config"
	"github.com/JonMunkholm/qbimport/internal/core"
	"github.com/JonMunkholm/qbimport/internal/schema"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store wraps a pgx connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// New creates a connection pool sized by cfg and verifies it with a ping.
func New(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	poolConfig, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Programs() core.Repository[core.Program] {
	return repo[core.Program]{db: s.Pool, table: schema.Programs}
}

func (s *Store) Courses() core.Repository[core.Course] {
	return repo[core.Course]{db: s.Pool, table: schema.Courses}
}

func (s *Store) Subjects() core.Repository[core.Subject] {
	return repo[core.Subject]{db: s.Pool, table: schema.Subjects}
}

func (s *Store) Competencies() core.Repository[core.Competency] {
	return repo[core.Competency]{db: s.Pool, table: schema.Competencies}
}

func (s *Store) Questions() core.Repository[core.Question] {
	return repo[core.Question]{db: s.Pool, table: schema.Questions}
}

func (s *Store) Options() core.Repository[core.Option] {
	return repo[core.Option]{db: s.Pool, table: schema.Options}
}

// Migrate creates the entity tables in a single transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		for _, stmt := range schema.DDL(schema.Postgres) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// Reset truncates every entity table.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, "TRUNCATE "+strings.Join(schema.TableNames, ", ")+" CASCADE")
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}

type repo[T any] struct {
	db    DBTX
	table schema.Table[T]
}

func (r repo[T]) Filter(ctx context.Context, c core.Criteria) ([]T, error) {
	query, args, err := r.table.SelectSQL(schema.Postgres, c)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table.Name, err)
	}
	defer rows.Close()

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
	if _, err := r.db.Exec(ctx, r.table.InsertSQL(schema.Postgres), r.table.Args(id, v)...); err != nil {
		var zero T
		return zero, fmt.Errorf("insert %s: %w", r.table.Name, err)
	}
	return r.table.WithID(v, id), nil
}
