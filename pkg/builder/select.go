package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/pebble-apps/pkg/runtime"
)

// From overrides the FROM item, typically to alias the table for joins:
// Select[Row](db).From("class_schedules s").InnerJoin("classes c", "c.id = s.class_id").
func (q *SelectQuery[T]) From(from string) *SelectQuery[T] {
	q.from = from
	return q
}

// Columns specifies which columns to select.
func (q *SelectQuery[T]) Columns(cols ...string) *SelectQuery[T] {
	q.columns = cols
	return q
}

// Where adds a WHERE condition.
func (q *SelectQuery[T]) Where(conditions ...Condition) *SelectQuery[T] {
	q.where = append(q.where, conditions...)
	return q
}

// OrderBy adds an ORDER BY clause.
func (q *SelectQuery[T]) OrderBy(column string, direction OrderDirection) *SelectQuery[T] {
	return q.Order(OrderBy{Column: column, Direction: direction})
}

// Order appends prepared ORDER BY terms.
func (q *SelectQuery[T]) Order(orders ...OrderBy) *SelectQuery[T] {
	q.orderBy = append(q.orderBy, orders...)
	return q
}

// OrderByAsc adds an ascending ORDER BY clause.
func (q *SelectQuery[T]) OrderByAsc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Asc)
}

// OrderByDesc adds a descending ORDER BY clause.
func (q *SelectQuery[T]) OrderByDesc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Desc)
}

// Limit sets the LIMIT clause.
func (q *SelectQuery[T]) Limit(limit int) *SelectQuery[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause.
func (q *SelectQuery[T]) Offset(offset int) *SelectQuery[T] {
	q.offset = &offset
	return q
}

// ForUpdate adds FOR UPDATE lock.
func (q *SelectQuery[T]) ForUpdate() *SelectQuery[T] {
	q.forUpdate = true
	return q
}

// GroupBy adds a GROUP BY clause.
func (q *SelectQuery[T]) GroupBy(columns ...string) *SelectQuery[T] {
	q.groupBy = append(q.groupBy, columns...)
	return q
}

// InnerJoin adds an INNER JOIN.
func (q *SelectQuery[T]) InnerJoin(table string, condition string) *SelectQuery[T] {
	q.joins = append(q.joins, Join{Type: InnerJoin, Table: table, Condition: condition})
	return q
}

// writeFrom writes FROM, JOIN and WHERE and returns the WHERE arguments.
func (q *SelectQuery[T]) writeFrom(sql *strings.Builder) ([]any, error) {
	sql.WriteString(" FROM ")
	if q.from != "" {
		sql.WriteString(q.from)
	} else {
		sql.WriteString(q.table.Name)
	}

	for _, join := range q.joins {
		fmt.Fprintf(sql, " %s %s ON %s", join.Type, join.Table, join.Condition)
	}

	whereSQL, args, err := NewWhereBuilder(1, q.where...).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	if whereSQL != "" {
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
	}
	return args, nil
}

// ToSQL generates the SQL query and arguments.
func (q *SelectQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if len(q.columns) == 0 {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(q.columns, ", "))
	}

	args, err := q.writeFrom(&sql)
	if err != nil {
		return "", nil, err
	}

	if len(q.groupBy) > 0 {
		sql.WriteString(" GROUP BY ")
		sql.WriteString(strings.Join(q.groupBy, ", "))
	}

	if len(q.orderBy) > 0 {
		orderParts := make([]string, len(q.orderBy))
		for i, order := range q.orderBy {
			direction := order.Direction
			if direction == "" {
				direction = Asc
			}
			orderParts[i] = order.Column + " " + string(direction)
			if order.NullsPos != NullsDefault {
				orderParts[i] += " " + string(order.NullsPos)
			}
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(orderParts, ", "))
	}

	if q.limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d", *q.limit)
	}
	if q.offset != nil {
		fmt.Fprintf(&sql, " OFFSET %d", *q.offset)
	}
	if q.forUpdate {
		sql.WriteString(" FOR UPDATE")
	}

	return sql.String(), args, nil
}

// All executes the query and returns all results. No rows is an empty, non-nil slice.
func (q *SelectQuery[T]) All(ctx context.Context) ([]T, error) {
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

// First returns the first matching row, or runtime.ErrNotFound.
func (q *SelectQuery[T]) First(ctx context.Context) (*T, error) {
	q.Limit(1)

	results, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, runtime.ErrNotFound
	}
	return &results[0], nil
}

// Count executes a COUNT query over the same FROM, JOIN and WHERE.
func (q *SelectQuery[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}

	var sql strings.Builder
	sql.WriteString("SELECT COUNT(*)")
	args, err := q.writeFrom(&sql)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := q.q.QueryRow(ctx, sql.String(), args...).Scan(&count); err != nil {
		return 0, runtime.NewQueryError(sql.String(), err)
	}
	return count, nil
}

// Exists reports whether any row matches.
func (q *SelectQuery[T]) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
