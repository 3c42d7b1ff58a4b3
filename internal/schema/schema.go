// Package schema describes the entity tables shared by the SQL stores: their
// columns, DDL per dialect, and the row mapping for each core entity.
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/qbimport/internal/core"
)

// Dialect selects placeholder style and column types.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Table maps an entity type to a SQL table. Columns excludes the id, which
// is always the first column.
type Table[T any] struct {
	Name    string
	Columns []string

	// Values returns the column values of v in Columns order.
	Values func(v T) []any

	// Scan reads id followed by Columns.
	Scan func(s Scanner) (T, error)

	// WithID returns v with its id set.
	WithID func(v T, id string) T
}

// InsertSQL returns an INSERT for id and every column.
func (t Table[T]) InsertSQL(d Dialect) string {
	cols := append([]string{"id"}, t.Columns...)
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(cols, ", "), strings.Join(ph, ", "))
}

// SelectSQL returns a SELECT filtered by equality on every criteria column,
// oldest row first. Criteria keys must be table columns.
func (t Table[T]) SelectSQL(d Dialect, c core.Criteria) (string, []any, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		if !slices.Contains(t.Columns, k) {
			return "", nil, fmt.Errorf("%s: unknown filter column %q", t.Name, k)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, %s FROM %s", strings.Join(t.Columns, ", "), t.Name)

	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = %s", k, d.Placeholder(i+1))
		args = append(args, c[k])
	}
	b.WriteString(" ORDER BY created_at, id")
	return b.String(), args, nil
}

// Args returns id followed by the column values of v.
func (t Table[T]) Args(id string, v T) []any {
	return append([]any{id}, t.Values(v)...)
}
