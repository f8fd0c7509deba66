package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/pebble-apps/pkg/runtime"
)

// Set sets a column value for the UPDATE. Assignments are emitted in call order;
// setting the same column twice keeps the last value in the first position.
func (q *UpdateQuery[T]) Set(column string, value any) *UpdateQuery[T] {
	return q.set(setClause{column: column, value: value})
}

// SetIf calls Set only when present is true. Patch inputs use it to skip absent fields.
func (q *UpdateQuery[T]) SetIf(present bool, column string, value any) *UpdateQuery[T] {
	if !present {
		return q
	}
	return q.Set(column, value)
}

// SetExpr assigns an SQL expression, e.g. SetExpr("booked_count", "booked_count + 1").
func (q *UpdateQuery[T]) SetExpr(column string, expr string, args ...any) *UpdateQuery[T] {
	return q.set(setClause{column: column, value: expr, expr: true, args: args})
}

func (q *UpdateQuery[T]) set(clause setClause) *UpdateQuery[T] {
	for i := range q.sets {
		if q.sets[i].column == clause.column {
			q.sets[i] = clause
			return q
		}
	}
	q.sets = append(q.sets, clause)
	return q
}

// HasSets reports whether any column has been assigned.
func (q *UpdateQuery[T]) HasSets() bool {
	return len(q.sets) > 0
}

// Where adds WHERE conditions.
func (q *UpdateQuery[T]) Where(conditions ...Condition) *UpdateQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// Returning specifies columns to return after update.
func (q *UpdateQuery[T]) Returning(columns ...string) *UpdateQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the UPDATE SQL and arguments.
func (q *UpdateQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.sets) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}

	var sql strings.Builder
	var args []any
	paramNum := 1

	sql.WriteString("UPDATE ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" SET ")

	setClauses := make([]string, len(q.sets))
	for i, set := range q.sets {
		if set.expr {
			expr, err := bindPlaceholders(set.value.(string), set.args, paramNum)
			if err != nil {
				return "", nil, err
			}
			setClauses[i] = set.column + " = " + expr
			args = append(args, set.args...)
			paramNum += len(set.args)
			continue
		}
		setClauses[i] = fmt.Sprintf("%s = $%d", set.column, paramNum)
		args = append(args, set.value)
		paramNum++
	}
	sql.WriteString(strings.Join(setClauses, ", "))

	whereSQL, whereArgs, err := NewWhereBuilder(paramNum, q.where...).Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	if whereSQL != "" {
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the UPDATE query and returns the number of affected rows.
func (q *UpdateQuery[T]) Exec(ctx context.Context) (int64, error) {
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

// ExecReturning executes the UPDATE and returns the updated rows.
func (q *UpdateQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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

// One runs the UPDATE and returns the single updated row, or runtime.ErrNotFound
// when the WHERE matched nothing.
func (q *UpdateQuery[T]) One(ctx context.Context) (*T, error) {
	rows, err := q.ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, runtime.ErrNotFound
	}
	return &rows[0], nil
}
