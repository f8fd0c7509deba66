package builder

import (
	"context"
	"fmt"
	"strings"
)

// Where adds WHERE conditions to the DELETE query.
func (q *DeleteQuery[T]) Where(conditions ...Condition) *DeleteQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// Returning specifies columns to return after delete.
func (q *DeleteQuery[T]) Returning(columns ...string) *DeleteQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the DELETE SQL and arguments.
// A DELETE without conditions is refused so a bad filter cannot empty a table.
func (q *DeleteQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.where) == 0 {
		return "", nil, fmt.Errorf("DELETE FROM %s without WHERE", q.table.Name)
	}

	var sql strings.Builder
	sql.WriteString("DELETE FROM ")
	sql.WriteString(q.table.Name)

	whereSQL, args, err := NewWhereBuilder(1, q.where...).Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	sql.WriteString(" ")
	sql.WriteString(whereSQL)

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the DELETE query and returns the number of affected rows.
func (q *DeleteQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	if len(q.returning) == 0 {
		return q.q.Exec(ctx, sql, args...)
	}

	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return countRows(rows, sql)
}

// ExecReturning executes the DELETE and returns the deleted rows.
func (q *DeleteQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.Returning("*")
	}

	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect[T](rows, q.table, sql)
}
