// Package builder provides a type-safe query builder for PostgreSQL.
package builder

import (
	"context"

	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Query represents a generic database query.
type Query interface {
	// ToSQL generates the SQL query and parameter values.
	ToSQL() (sql string, args []any, err error)
}

// Executable represents a query that can be executed.
type Executable interface {
	Query
	// Exec executes the query and returns the number of affected rows.
	Exec(ctx context.Context) (int64, error)
}

// SelectQuery represents a SELECT query with type safety.
type SelectQuery[T any] struct {
	q         Querier
	table     *schema.TableMetadata
	err       error
	from      string
	columns   []string
	where     []Condition
	joins     []Join
	groupBy   []string
	orderBy   []OrderBy
	limit     *int
	offset    *int
	forUpdate bool
}

// InsertQuery represents an INSERT query.
type InsertQuery[T any] struct {
	q          Querier
	table      *schema.TableMetadata
	err        error
	values     []T
	returning  []string
	onConflict *OnConflict
}

// UpdateQuery represents an UPDATE query.
type UpdateQuery[T any] struct {
	q         Querier
	table     *schema.TableMetadata
	err       error
	sets      []setClause
	where     []Condition
	returning []string
}

// setClause is one `column = value` assignment. When expr is set, value is
// an SQL fragment with ? placeholders for args.
type setClause struct {
	column string
	value  any
	expr   bool
	args   []any
}

// DeleteQuery represents a DELETE query.
type DeleteQuery[T any] struct {
	q         Querier
	table     *schema.TableMetadata
	err       error
	where     []Condition
	returning []string
}

// Condition represents a WHERE condition.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
	Group    []Condition // For grouped conditions
}

// Join represents a JOIN clause.
type Join struct {
	Type      JoinType
	Table     string
	Condition string
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Column    string
	Direction OrderDirection
	NullsPos  NullsPosition
}

// OnConflict represents an ON CONFLICT ... DO NOTHING clause.
type OnConflict struct {
	Columns []string
}

// Operator represents a comparison operator.
type Operator string

const (
	// OpEqual represents the = operator.
	OpEqual Operator = "="
	// OpNotEqual represents the != operator.
	OpNotEqual Operator = "!="
	// OpGreaterThan represents the > operator.
	OpGreaterThan Operator = ">"
	// OpGreaterThanOrEqual represents the >= operator.
	OpGreaterThanOrEqual Operator = ">="
	// OpLessThanOrEqual represents the <= operator.
	OpLessThanOrEqual Operator = "<="
	// OpIn represents the IN operator.
	OpIn Operator = "IN"
	// OpILike represents the ILIKE operator (case-insensitive).
	OpILike Operator = "ILIKE"
	// OpIsNotNull represents the IS NOT NULL operator.
	OpIsNotNull Operator = "IS NOT NULL"
	// OpExpr is a raw SQL fragment in Column with ? placeholders bound to Value.
	OpExpr Operator = "EXPR"
)

// LogicOperator represents a logical operator (AND/OR).
type LogicOperator string

const (
	// LogicAnd represents the AND operator.
	LogicAnd LogicOperator = "AND"
	// LogicOr represents the OR operator.
	LogicOr LogicOperator = "OR"
)

// JoinType represents a type of JOIN.
type JoinType string

const (
	// InnerJoin represents an INNER JOIN.
	InnerJoin JoinType = "INNER JOIN"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	// Asc represents ascending order.
	Asc OrderDirection = "ASC"
	// Desc represents descending order.
	Desc OrderDirection = "DESC"
)

// NullsPosition represents NULL positioning in ORDER BY.
type NullsPosition string

const (
	NullsFirst   NullsPosition = "NULLS FIRST"
	NullsLast    NullsPosition = "NULLS LAST"
	NullsDefault NullsPosition = ""
)

