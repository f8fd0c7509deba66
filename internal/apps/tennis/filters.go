package tennis

import (
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
)

// PlayerFilter filters searchPlayers.
type PlayerFilter struct {
	Search           *string `json:"search"`
	SkillLevel       *string `json:"skill_level" binding:"omitempty,oneof=beginner intermediate advanced pro"`
	City             *string `json:"city"`
	PreferredSurface *string `json:"preferred_surface" binding:"omitempty,oneof=hard clay grass any"`
	IsActive         *bool   `json:"is_active"`
	ExcludePlayerID  *int64  `json:"exclude_player_id"`
	listquery.Page
}

var playerList = listquery.Definition[PlayerFilter]{
	Predicates: []listquery.Predicate[PlayerFilter]{
		listquery.Search(func(f *PlayerFilter) *string { return f.Search }, "name", "city", "bio"),
		listquery.Equals("skill_level", func(f *PlayerFilter) *string { return f.SkillLevel }),
		listquery.Search(func(f *PlayerFilter) *string { return f.City }, "city"),
		listquery.Equals("preferred_surface", func(f *PlayerFilter) *string { return f.PreferredSurface }),
		listquery.Equals("is_active", func(f *PlayerFilter) *bool { return f.IsActive }),
		listquery.NotEquals("id", func(f *PlayerFilter) *int64 { return f.ExcludePlayerID }),
	},
	Limit: listquery.Limit{Default: 20, Max: 100},
}

// ConnectionFilter filters getConnections. PlayerID matches either side.
type ConnectionFilter struct {
	PlayerID *int64  `json:"player_id"`
	Status   *string `json:"status" binding:"omitempty,oneof=pending accepted declined"`
	listquery.Page
}

var connectionList = listquery.Definition[ConnectionFilter]{
	Predicates: []listquery.Predicate[ConnectionFilter]{
		listquery.When(func(f *ConnectionFilter) *int64 { return f.PlayerID }, func(id int64) builder.Condition {
			return builder.AnyOf(builder.Eq("requester_id", id), builder.Eq("addressee_id", id))
		}),
		listquery.Equals("status", func(f *ConnectionFilter) *string { return f.Status }),
	},
	Limit: listquery.Limit{Default: 50, Max: 200},
}

// betweenPair matches connections between a and b in either direction.
func betweenPair(a, b int64) builder.Condition {
	return builder.Expr("LEAST(requester_id, addressee_id) = LEAST(?::bigint, ?::bigint) AND GREATEST(requester_id, addressee_id) = GREATEST(?::bigint, ?::bigint)", a, b, a, b)
}
