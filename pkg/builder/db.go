package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/pebble-apps/pkg/registry"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

var errNoConnection = errors.New("builder: no database connection")

// Querier is anything queries can run against: the pool-backed DB or an open Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps runtime.DB and provides query builder methods.
type DB struct {
	db *runtime.DB
}

// New creates a new query builder DB from a runtime DB.
// A nil runtime DB is allowed for building SQL without executing it.
func New(db *runtime.DB) *DB {
	return &DB{db: db}
}

// Runtime returns the underlying runtime.DB.
func (d *DB) Runtime() *runtime.DB {
	return d.db
}

func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if d.db == nil {
		return 0, errNoConnection
	}
	return d.db.Exec(ctx, sql, args...)
}

func (d *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if d.db == nil {
		return nil, errNoConnection
	}
	return d.db.Query(ctx, sql, args...)
}

func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.db.QueryRow(ctx, sql, args...)
}

func tableFor[T any]() (*schema.TableMetadata, error) {
	var model T
	table, err := registry.GetOrRegister(model)
	if err != nil {
		return nil, fmt.Errorf("table metadata not available: %w", err)
	}
	return table, nil
}

// Select creates a new type-safe SELECT query.
// Usage: builder.Select[Car](db).Where(builder.Eq("make", "Honda")).All(ctx)
func Select[T any](q Querier) *SelectQuery[T] {
	table, err := tableFor[T]()
	return &SelectQuery[T]{q: q, table: table, err: err}
}

// Insert creates a new type-safe INSERT query.
// Usage: builder.Insert[Car](db).Values(car).ExecReturning(ctx)
func Insert[T any](q Querier) *InsertQuery[T] {
	table, err := tableFor[T]()
	return &InsertQuery[T]{q: q, table: table, err: err}
}

// Update creates a new type-safe UPDATE query.
// Usage: builder.Update[Car](db).Set("color", "red").Where(...).Exec(ctx)
func Update[T any](q Querier) *UpdateQuery[T] {
	table, err := tableFor[T]()
	return &UpdateQuery[T]{q: q, table: table, err: err}
}

// Delete creates a new type-safe DELETE query.
// Usage: builder.Delete[Car](db).Where(...).Exec(ctx)
func Delete[T any](q Querier) *DeleteQuery[T] {
	table, err := tableFor[T]()
	return &DeleteQuery[T]{q: q, table: table, err: err}
}

// collect scans every row into T and always returns a non-nil slice.
func collect[T any](rows pgx.Rows, table *schema.TableMetadata, sql string) ([]T, error) {
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, table); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, runtime.NewQueryError(sql, err)
	}
	return results, nil
}

// countRows drains rows and returns how many there were.
func countRows(rows pgx.Rows, sql string) (int64, error) {
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, runtime.NewQueryError(sql, err)
	}
	return count, nil
}
