package builder

import (
	"fmt"
	"strings"
)

// WhereBuilder helps build WHERE clauses.
type WhereBuilder struct {
	conditions []Condition
	paramStart int
}

// NewWhereBuilder creates a new WhereBuilder whose first placeholder is $paramStart.
func NewWhereBuilder(paramStart int, conditions ...Condition) *WhereBuilder {
	return &WhereBuilder{conditions: conditions, paramStart: paramStart}
}

// Build generates the WHERE clause SQL and arguments.
func (w *WhereBuilder) Build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}
	sql, args, err := buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + sql, args, nil
}

// buildConditions recursively builds conditions.
func buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var parts []string
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		var condSQL string
		var condArgs []any
		var err error

		if len(cond.Group) > 0 {
			condSQL, condArgs, err = buildConditions(cond.Group, paramNum)
			condSQL = "(" + condSQL + ")"
		} else {
			condSQL, condArgs, err = buildCondition(cond, paramNum)
		}
		if err != nil {
			return "", nil, err
		}

		parts = append(parts, condSQL)
		args = append(args, condArgs...)
		paramNum += len(condArgs)

		// Logic operator between conditions
		if i < len(conditions)-1 {
			logic := conditions[i+1].Logic
			if logic == "" {
				logic = LogicAnd
			}
			parts[len(parts)-1] += " " + string(logic)
		}
	}

	return strings.Join(parts, " "), args, nil
}

// buildCondition builds a single condition.
func buildCondition(cond Condition, paramNum int) (string, []any, error) {
	column := cond.Column
	value := cond.Value

	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpILike:
		return fmt.Sprintf("%s %s $%d", column, cond.Operator, paramNum), []any{value}, nil

	case OpIn:
		values, ok := value.([]any)
		if !ok {
			return "", nil, fmt.Errorf("IN operator requires []any value")
		}
		if len(values) == 0 {
			// IN () is a syntax error; an empty set matches nothing.
			return "FALSE", nil, nil
		}
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.Operator, strings.Join(placeholders, ", ")), values, nil

	case OpIsNotNull:
		return column + " IS NOT NULL", nil, nil

	case OpExpr:
		args, _ := value.([]any)
		sql, err := bindPlaceholders(column, args, paramNum)
		return sql, args, err

	default:
		return "", nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// bindPlaceholders rewrites each ? in fragment to $n, starting at paramNum.
func bindPlaceholders(fragment string, args []any, paramNum int) (string, error) {
	var sb strings.Builder
	n := 0
	for _, ch := range fragment {
		if ch == '?' {
			fmt.Fprintf(&sb, "$%d", paramNum+n)
			n++
			continue
		}
		sb.WriteRune(ch)
	}
	if n != len(args) {
		return "", fmt.Errorf("expression %q has %d placeholders but %d arguments", fragment, n, len(args))
	}
	return sb.String(), nil
}

// Eq creates an equality condition.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpEqual, Value: value, Logic: LogicAnd}
}

// NotEq creates a not-equal condition.
func NotEq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpNotEqual, Value: value, Logic: LogicAnd}
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThan, Value: value, Logic: LogicAnd}
}

// Gte creates a greater-than-or-equal condition.
func Gte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThanOrEqual, Value: value, Logic: LogicAnd}
}

// Lte creates a less-than-or-equal condition.
func Lte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThanOrEqual, Value: value, Logic: LogicAnd}
}

// In creates an IN condition.
func In(column string, values ...any) Condition {
	return Condition{Column: column, Operator: OpIn, Value: values, Logic: LogicAnd}
}

// Args converts a typed slice for In: builder.In("id", builder.Args(ids)...).
func Args[V any](values []V) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// ILike creates an ILIKE condition (case-insensitive).
func ILike(column string, pattern string) Condition {
	return Condition{Column: column, Operator: OpILike, Value: pattern, Logic: LogicAnd}
}

// IsNotNull creates an IS NOT NULL condition.
func IsNotNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNotNull, Logic: LogicAnd}
}

// Expr embeds a raw SQL fragment. Each ? in sql is bound to the next arg.
//
//	builder.Expr("booked_count < capacity")
//	builder.Expr("LEAST(requester_id, addressee_id) = LEAST(?, ?)", a, b)
func Expr(sql string, args ...any) Condition {
	return Condition{Column: sql, Operator: OpExpr, Value: args, Logic: LogicAnd}
}

// Exists wraps a correlated subquery in EXISTS (...).
func Exists(subquery string, args ...any) Condition {
	return Expr("EXISTS ("+subquery+")", args...)
}

// Group creates a grouped condition.
func Group(conditions ...Condition) Condition {
	return Condition{Group: conditions, Logic: LogicAnd}
}

// AnyOf groups conditions joined by OR: (a OR b OR c).
func AnyOf(conditions ...Condition) Condition {
	grouped := make([]Condition, len(conditions))
	for i, c := range conditions {
		if i > 0 {
			c.Logic = LogicOr
		}
		grouped[i] = c
	}
	return Group(grouped...)
}
