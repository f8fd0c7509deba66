package builder

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Values sets the values to insert (single or multiple rows).
func (q *InsertQuery[T]) Values(values ...T) *InsertQuery[T] {
	q.values = append(q.values, values...)
	return q
}

// Returning specifies columns to return after insert.
func (q *InsertQuery[T]) Returning(columns ...string) *InsertQuery[T] {
	q.returning = columns
	return q
}

// OnConflictDoNothing skips rows that collide on columns, or on any unique
// constraint when columns is empty.
func (q *InsertQuery[T]) OnConflictDoNothing(columns ...string) *InsertQuery[T] {
	q.onConflict = &OnConflict{Columns: columns}
	return q
}

// ToSQL generates the INSERT SQL and arguments.
func (q *InsertQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("no values to insert")
	}

	var sql strings.Builder
	var args []any
	paramNum := 1

	columns, _, err := structToValues(q.values[0], q.table, true)
	if err != nil {
		return "", nil, fmt.Errorf("failed to extract values: %w", err)
	}

	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" (")
	sql.WriteString(strings.Join(columns, ", "))
	sql.WriteString(") VALUES ")

	valueClauses := make([]string, len(q.values))
	for i, val := range q.values {
		rowColumns, rowValues, err := structToValues(val, q.table, true)
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract values from row %d: %w", i, err)
		}
		if !slices.Equal(rowColumns, columns) {
			return "", nil, fmt.Errorf("row %d sets columns %v, expected %v", i, rowColumns, columns)
		}

		placeholders := make([]string, len(rowValues))
		for j := range rowValues {
			placeholders[j] = fmt.Sprintf("$%d", paramNum)
			paramNum++
		}
		args = append(args, rowValues...)
		valueClauses[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}
	sql.WriteString(strings.Join(valueClauses, ", "))

	if q.onConflict != nil {
		sql.WriteString(" ON CONFLICT")
		if len(q.onConflict.Columns) > 0 {
			sql.WriteString(" (" + strings.Join(q.onConflict.Columns, ", ") + ")")
		}
		sql.WriteString(" DO NOTHING")
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the INSERT query and returns the number of inserted rows.
func (q *InsertQuery[T]) Exec(ctx context.Context) (int64, error) {
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

// ExecReturning executes the INSERT and returns the inserted rows.
func (q *InsertQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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

// One inserts a single row and returns it as stored.
func (q *InsertQuery[T]) One(ctx context.Context) (*T, error) {
	rows, err := q.ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no rows", q.table.Name)
	}
	return &rows[0], nil
}
