// Package listquery turns a sparse filter struct into the WHERE, ORDER BY and
// LIMIT of a builder.SelectQuery.
//
// A Definition is an ordered list of predicates. Each predicate looks at one
// field of the filter and contributes at most one condition; the conditions are
// ANDed in declaration order. When the filter is nil, or none of its fields
// produce a condition, the definition's Default conditions are used instead.
package listquery

import (
	"strings"

	"github.com/marshallshelly/pebble-apps/pkg/builder"
)

// Predicate inspects one field of filter f. It reports false when the field is absent.
type Predicate[F any] func(f *F) (builder.Condition, bool)

// Limit is the server-side page size policy of one entity. A zero Default disables
// pagination for the entity.
type Limit struct {
	Default int
	Max     int
}

// Page is embedded in filters of paginated endpoints.
type Page struct {
	Limit  *int `json:"limit,omitempty" binding:"omitempty,min=1"`
	Offset *int `json:"offset,omitempty" binding:"omitempty,min=0"`
}

// Pagination returns the requested page. Filters embedding Page get it promoted.
func (p Page) Pagination() Page { return p }

type paginated interface {
	Pagination() Page
}

// Definition describes how one list endpoint filters, orders and pages.
type Definition[F any] struct {
	Predicates []Predicate[F]
	// Default is applied when no predicate matched, e.g. active-only listings.
	Default []builder.Condition
	// Order defaults to id ascending.
	Order []builder.OrderBy
	Limit Limit
}

// Conditions evaluates the predicates against filter.
func (d Definition[F]) Conditions(filter *F) []builder.Condition {
	var conds []builder.Condition
	if filter != nil {
		for _, p := range d.Predicates {
			if cond, ok := p(filter); ok {
				conds = append(conds, cond)
			}
		}
	}
	if len(conds) == 0 {
		return append([]builder.Condition(nil), d.Default...)
	}
	return conds
}

// Window resolves LIMIT and OFFSET for filter. ok is false when the entity is unpaginated.
func (d Definition[F]) Window(filter *F) (limit, offset int, ok bool) {
	if d.Limit.Default <= 0 {
		return 0, 0, false
	}
	limit = d.Limit.Default
	if filter != nil {
		if pf, isPaged := any(filter).(paginated); isPaged {
			page := pf.Pagination()
			if page.Limit != nil && *page.Limit > 0 {
				limit = *page.Limit
			}
			if page.Offset != nil && *page.Offset > 0 {
				offset = *page.Offset
			}
		}
	}
	if d.Limit.Max > 0 && limit > d.Limit.Max {
		limit = d.Limit.Max
	}
	return limit, offset, true
}

// Apply adds the definition's conditions, ordering and page window to q.
func Apply[T, F any](q *builder.SelectQuery[T], d Definition[F], filter *F) *builder.SelectQuery[T] {
	q.Where(d.Conditions(filter)...)

	if len(d.Order) == 0 {
		q.OrderByAsc("id")
	} else {
		q.Order(d.Order...)
	}

	if limit, offset, ok := d.Window(filter); ok {
		q.Limit(limit)
		if offset > 0 {
			q.Offset(offset)
		}
	}
	return q
}

// Equals matches column against the field's value.
func Equals[F, V any](column string, field func(*F) *V) Predicate[F] {
	return func(f *F) (builder.Condition, bool) {
		v := field(f)
		if v == nil {
			return builder.Condition{}, false
		}
		return builder.Eq(column, *v), true
	}
}

// NotEquals excludes rows whose column equals the field's value.
func NotEquals[F, V any](column string, field func(*F) *V) Predicate[F] {
	return func(f *F) (builder.Condition, bool) {
		v := field(f)
		if v == nil {
			return builder.Condition{}, false
		}
		return builder.NotEq(column, *v), true
	}
}

// OnOrAfter is the inclusive lower bound of a range filter.
func OnOrAfter[F, V any](column string, field func(*F) *V) Predicate[F] {
	return func(f *F) (builder.Condition, bool) {
		v := field(f)
		if v == nil {
			return builder.Condition{}, false
		}
		return builder.Gte(column, *v), true
	}
}

// OnOrBefore is the inclusive upper bound of a range filter.
func OnOrBefore[F, V any](column string, field func(*F) *V) Predicate[F] {
	return func(f *F) (builder.Condition, bool) {
		v := field(f)
		if v == nil {
			return builder.Condition{}, false
		}
		return builder.Lte(column, *v), true
	}
}

// InList matches column against any of the field's values. An empty list is absent.
func InList[F, V any](column string, field func(*F) []V) Predicate[F] {
	return func(f *F) (builder.Condition, bool) {
		values := field(f)
		if len(values) == 0 {
			return builder.Condition{}, false
		}
		return builder.In(column, builder.Args(values)...), true
	}
}

// Search is a case-insensitive substring match of the field against any of columns.
// Several columns are ORed inside one group. A blank term is absent.
func Search[F any](field func(*F) *string, columns ...string) Predicate[F] {
	return func(f *F) (builder.Condition, bool) {
		v := field(f)
		if v == nil || strings.TrimSpace(*v) == "" {
			return builder.Condition{}, false
		}
		pattern := Contains(strings.TrimSpace(*v))
		conds := make([]builder.Condition, len(columns))
		for i, col := range columns {
			conds[i] = builder.ILike(col, pattern)
		}
		if len(conds) == 1 {
			return conds[0], true
		}
		return builder.AnyOf(conds...), true
	}
}

// When builds a predicate from a custom condition constructor for fields that
// need more than a single comparison, e.g. an EXISTS on a related table.
func When[F, V any](field func(*F) *V, cond func(v V) builder.Condition) Predicate[F] {
	return func(f *F) (builder.Condition, bool) {
		v := field(f)
		if v == nil {
			return builder.Condition{}, false
		}
		return cond(*v), true
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains returns an ILIKE pattern matching term anywhere, with LIKE wildcards in term escaped.
func Contains(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
