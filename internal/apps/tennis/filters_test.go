package tennis

import (
	"testing"

	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPlayerList(t *testing.T) {
	db := builder.New(nil)

	tests := []struct {
		name     string
		filter   *PlayerFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "absent filter",
			wantSQL: "SELECT * FROM players ORDER BY id ASC LIMIT 20",
		},
		{
			name:     "skill and city",
			filter:   &PlayerFilter{SkillLevel: ptr("intermediate"), City: ptr("Austin")},
			wantSQL:  "SELECT * FROM players WHERE skill_level = $1 AND city ILIKE $2 ORDER BY id ASC LIMIT 20",
			wantArgs: []any{"intermediate", "%Austin%"},
		},
		{
			name:     "search excluding the caller",
			filter:   &PlayerFilter{Search: ptr("lefty"), ExcludePlayerID: ptr(int64(7)), IsActive: ptr(true)},
			wantSQL:  "SELECT * FROM players WHERE (name ILIKE $1 OR city ILIKE $2 OR bio ILIKE $3) AND is_active = $4 AND id != $5 ORDER BY id ASC LIMIT 20",
			wantArgs: []any{"%lefty%", "%lefty%", "%lefty%", true, int64(7)},
		},
		{
			name:     "surface with clamped page",
			filter:   &PlayerFilter{PreferredSurface: ptr("clay"), Page: listquery.Page{Limit: ptr(1000)}},
			wantSQL:  "SELECT * FROM players WHERE preferred_surface = $1 ORDER BY id ASC LIMIT 100",
			wantArgs: []any{"clay"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := listquery.Apply(builder.Select[Player](db), playerList, tt.filter).ToSQL()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestConnectionList(t *testing.T) {
	db := builder.New(nil)

	sql, args, err := listquery.Apply(builder.Select[Connection](db), connectionList, &ConnectionFilter{
		PlayerID: ptr(int64(3)),
		Status:   ptr(StatusPending),
	}).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM connections WHERE (requester_id = $1 OR addressee_id = $2) AND status = $3 ORDER BY id ASC LIMIT 50", sql)
	assert.Equal(t, []any{int64(3), int64(3), StatusPending}, args)
}

func TestBetweenPair(t *testing.T) {
	db := builder.New(nil)

	sql, args, err := builder.Select[Connection](db).Where(betweenPair(1, 2)).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM connections WHERE LEAST(requester_id, addressee_id) = LEAST($1::bigint, $2::bigint) AND GREATEST(requester_id, addressee_id) = GREATEST($3::bigint, $4::bigint)", sql)
	assert.Equal(t, []any{int64(1), int64(2), int64(1), int64(2)}, args)
}
