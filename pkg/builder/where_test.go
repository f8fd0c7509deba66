package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereBuilder_Build(t *testing.T) {
	tests := []struct {
		name       string
		start      int
		conditions []Condition
		wantSQL    string
		wantArgs   []any
		wantErr    bool
	}{
		{
			name:    "no conditions",
			start:   1,
			wantSQL: "",
		},
		{
			name:       "placeholders start at offset",
			start:      3,
			conditions: []Condition{Eq("a", 1), Lte("b", 2)},
			wantSQL:    "WHERE a = $3 AND b <= $4",
			wantArgs:   []any{1, 2},
		},
		{
			name:  "any of group",
			start: 1,
			conditions: []Condition{
				AnyOf(ILike("make", "%h%"), ILike("model", "%h%")),
				Eq("year", 2020),
			},
			wantSQL:  "WHERE (make ILIKE $1 OR model ILIKE $2) AND year = $3",
			wantArgs: []any{"%h%", "%h%", 2020},
		},
		{
			name:       "in list",
			start:      1,
			conditions: []Condition{In("status", "booked", "attended")},
			wantSQL:    "WHERE status IN ($1, $2)",
			wantArgs:   []any{"booked", "attended"},
		},
		{
			name:       "empty in list matches nothing",
			start:      1,
			conditions: []Condition{In("status")},
			wantSQL:    "WHERE FALSE",
		},
		{
			name:       "not null and not equal",
			start:      1,
			conditions: []Condition{IsNotNull("next_service_date"), NotEq("is_favorite", true)},
			wantSQL:    "WHERE next_service_date IS NOT NULL AND is_favorite != $1",
			wantArgs:   []any{true},
		},
		{
			name:  "exists subquery",
			start: 2,
			conditions: []Condition{
				Exists("SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = bookmarks.id AND bt.tag_id = ?", int64(5)),
			},
			wantSQL:  "WHERE EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = bookmarks.id AND bt.tag_id = $2)",
			wantArgs: []any{int64(5)},
		},
		{
			name:       "expression without args",
			start:      1,
			conditions: []Condition{Eq("id", 9), Expr("booked_count < capacity")},
			wantSQL:    "WHERE id = $1 AND booked_count < capacity",
			wantArgs:   []any{9},
		},
		{
			name:       "expression argument mismatch",
			start:      1,
			conditions: []Condition{Expr("a = ? AND b = ?", 1)},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := NewWhereBuilder(tt.start, tt.conditions...).Build()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
