// Package dbx holds the minimal database/sql surface shared by the SQL
// repositories, so they can run against *sql.DB, *sql.Tx or a mock.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowsCursor adapts *sql.Rows to a forward-only cursor. Each row is decoded
// with scan as soon as Next advances. A scan error belongs to that row and is
// returned by Value; only rows.Err and ctx stop iteration.
type RowsCursor[T any] struct {
	rows   *sql.Rows
	scan   func(*sql.Rows) (T, error)
	cur    T
	rowErr error
	err    error
}

// NewRowsCursor wraps rows. The cursor owns rows and closes them in Close.
func NewRowsCursor[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) *RowsCursor[T] {
	return &RowsCursor[T]{rows: rows, scan: scan}
}

func (c *RowsCursor[T]) Next(ctx context.Context) bool {
	var zero T
	c.cur, c.rowErr = zero, nil

	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}
	c.cur, c.rowErr = c.scan(c.rows)
	return true
}

func (c *RowsCursor[T]) Value() (T, error) { return c.cur, c.rowErr }

func (c *RowsCursor[T]) Err() error { return c.err }

func (c *RowsCursor[T]) Close(context.Context) error { return c.rows.Close() }
