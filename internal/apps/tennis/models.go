// Package tennis matches players looking for hitting partners.
package tennis

import (
	"time"

	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Connection statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Player is a registered player.
type Player struct {
	ID               int64     `json:"id" po:"id,primaryKey,bigserial"`
	Name             string    `json:"name" po:"name,text,notNull"`
	Email            string    `json:"email" po:"email,varchar(320),notNull,unique"`
	SkillLevel       string    `json:"skill_level" po:"skill_level,text,notNull,enum(beginner|intermediate|advanced|pro),index"`
	NTRPRating       *float64  `json:"ntrp_rating" po:"ntrp_rating,numeric(2,1),check(ntrp_rating BETWEEN 1.0 AND 7.0)"`
	City             string    `json:"city" po:"city,text,notNull,index"`
	PreferredSurface *string   `json:"preferred_surface" po:"preferred_surface,text,enum(hard|clay|grass|any)"`
	Availability     *string   `json:"availability" po:"availability,text"`
	Bio              *string   `json:"bio" po:"bio,text"`
	IsActive         bool      `json:"is_active" po:"is_active,boolean,notNull,default(true)"`
	CreatedAt        time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt        time.Time `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (Player) TableName() string { return "players" }

// Connection is a partner request from one player to another.
type Connection struct {
	ID          int64     `json:"id" po:"id,primaryKey,bigserial"`
	RequesterID int64     `json:"requester_id" po:"requester_id,bigint,notNull,index,fk:players(id),onDelete:cascade"`
	AddresseeID int64     `json:"addressee_id" po:"addressee_id,bigint,notNull,index,fk:players(id),onDelete:cascade,check(addressee_id <> requester_id)"`
	Status      string    `json:"status" po:"status,text,notNull,default('pending'),enum(pending|accepted|declined)"`
	Message     *string   `json:"message" po:"message,text"`
	CreatedAt   time.Time `json:"created_at" po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt   time.Time `json:"updated_at" po:"updated_at,timestamptz,notNull,default(now())"`
}

func (Connection) TableName() string { return "connections" }

// TableIndexes allows one pending request per unordered pair of players.
func (Connection) TableIndexes() []schema.IndexMetadata {
	return []schema.IndexMetadata{{
		Name:       "uq_connections_pending_pair",
		Columns:    []string{"requester_id", "addressee_id"},
		Unique:     true,
		Expression: "LEAST(requester_id, addressee_id), GREATEST(requester_id, addressee_id)",
		Where:      "status = 'pending'",
	}}
}

// Models returns the persisted models of the app.
func Models() []any {
	return []any{Player{}, Connection{}}
}
