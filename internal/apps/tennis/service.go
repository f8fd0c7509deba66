package tennis

import (
	"context"
	"log/slog"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/apps/crud"
	"github.com/marshallshelly/pebble-apps/internal/sanitize"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
)

const (
	entityPlayer     = "Player"
	entityConnection = "Connection"

	duplicateEmail      = "a player with this email already exists"
	duplicateConnection = "a connection between these players already exists"
)

// Service implements the tennis procedures.
type Service struct {
	db     *builder.DB
	logger *slog.Logger
}

// NewService creates the tennis service.
func NewService(db *builder.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger.With(slog.String("app", "tennis"))}
}

// CreatePlayerInput is the input of createPlayer.
type CreatePlayerInput struct {
	Name             string   `json:"name" binding:"required,max=200"`
	Email            string   `json:"email" binding:"required,email,max=320"`
	SkillLevel       string   `json:"skill_level" binding:"required,oneof=beginner intermediate advanced pro"`
	NTRPRating       *float64 `json:"ntrp_rating" binding:"omitempty,min=1,max=7"`
	City             string   `json:"city" binding:"required,max=100"`
	PreferredSurface *string  `json:"preferred_surface" binding:"omitempty,oneof=hard clay grass any"`
	Availability     *string  `json:"availability" binding:"omitempty,max=500"`
	Bio              *string  `json:"bio" binding:"omitempty,max=2000"`
	IsActive         *bool    `json:"is_active"`
}

// UpdatePlayerInput is the patch of updatePlayer.
type UpdatePlayerInput struct {
	ID               int64                    `json:"id" binding:"required,min=1"`
	Name             optional.Field[string]   `json:"name" binding:"omitempty,min=1,max=200"`
	Email            optional.Field[string]   `json:"email" binding:"omitempty,email,max=320"`
	SkillLevel       optional.Field[string]   `json:"skill_level" binding:"omitempty,oneof=beginner intermediate advanced pro"`
	NTRPRating       optional.Field[*float64] `json:"ntrp_rating" binding:"omitempty,min=1,max=7"`
	City             optional.Field[string]   `json:"city" binding:"omitempty,min=1,max=100"`
	PreferredSurface optional.Field[*string]  `json:"preferred_surface" binding:"omitempty,oneof=hard clay grass any"`
	Availability     optional.Field[*string]  `json:"availability" binding:"omitempty,max=500"`
	Bio              optional.Field[*string]  `json:"bio" binding:"omitempty,max=2000"`
	IsActive         optional.Field[bool]     `json:"is_active"`
}

// CreatePlayer registers a player. The email is stored lowercased.
func (s *Service) CreatePlayer(ctx context.Context, in *CreatePlayerInput) (*Player, error) {
	p := Player{
		Name:             sanitize.Text(in.Name),
		Email:            crud.Lower(in.Email),
		SkillLevel:       in.SkillLevel,
		NTRPRating:       in.NTRPRating,
		City:             sanitize.Text(in.City),
		PreferredSurface: in.PreferredSurface,
		Availability:     sanitize.Ptr(in.Availability),
		Bio:              sanitize.Ptr(in.Bio),
		IsActive:         true,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	player, err := builder.Insert[Player](s.db).Values(p).One(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, duplicateEmail)
	}
	return player, nil
}

// SearchPlayers lists players matching the filter.
func (s *Service) SearchPlayers(ctx context.Context, f *PlayerFilter) ([]Player, error) {
	return listquery.Apply(builder.Select[Player](s.db), playerList, f).All(ctx)
}

// GetPlayerByID returns one player.
func (s *Service) GetPlayerByID(ctx context.Context, in *crud.ByID) (*Player, error) {
	return crud.Get[Player](ctx, s.db, entityPlayer, in.ID)
}

// UpdatePlayer changes the fields present in the patch.
func (s *Service) UpdatePlayer(ctx context.Context, in *UpdatePlayerInput) (*Player, error) {
	u := builder.Update[Player](s.db).
		SetIf(in.Name.Present(), "name", sanitize.Text(in.Name.Get())).
		SetIf(in.Email.Present(), "email", crud.Lower(in.Email.Get())).
		SetIf(in.SkillLevel.Present(), "skill_level", in.SkillLevel.Get()).
		SetIf(in.NTRPRating.Present(), "ntrp_rating", in.NTRPRating.Get()).
		SetIf(in.City.Present(), "city", sanitize.Text(in.City.Get())).
		SetIf(in.PreferredSurface.Present(), "preferred_surface", in.PreferredSurface.Get()).
		SetIf(in.Availability.Present(), "availability", sanitize.Ptr(in.Availability.Get())).
		SetIf(in.Bio.Present(), "bio", sanitize.Ptr(in.Bio.Get())).
		SetIf(in.IsActive.Present(), "is_active", in.IsActive.Get())
	return crud.Update(ctx, s.db, u, entityPlayer, in.ID, duplicateEmail)
}

// DeletePlayer removes a player and every connection involving them.
func (s *Service) DeletePlayer(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Player](ctx, s.db, entityPlayer, in.ID, crud.MissingFails)
}

// CreateConnectionInput is the input of createConnection.
type CreateConnectionInput struct {
	RequesterID int64   `json:"requester_id" binding:"required,min=1"`
	AddresseeID int64   `json:"addressee_id" binding:"required,min=1,nefield=RequesterID"`
	Message     *string `json:"message" binding:"omitempty,max=1000"`
}

// UpdateConnectionInput is the patch of updateConnection. Status changes go
// through respondToConnection.
type UpdateConnectionInput struct {
	ID      int64                   `json:"id" binding:"required,min=1"`
	Message optional.Field[*string] `json:"message" binding:"omitempty,max=1000"`
}

// RespondInput is the input of respondToConnection.
type RespondInput struct {
	ID     int64  `json:"id" binding:"required,min=1"`
	Status string `json:"status" binding:"required,oneof=accepted declined"`
}

// CreateConnection sends a partner request. A pending or accepted connection
// between the two players, in either direction, is a conflict.
func (s *Service) CreateConnection(ctx context.Context, in *CreateConnectionInput) (*Connection, error) {
	if in.RequesterID == in.AddresseeID {
		return nil, apperr.Validation("a player cannot connect with themselves")
	}
	var conn *Connection
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		if err := crud.MustExist[Player](ctx, tx, entityPlayer, in.RequesterID); err != nil {
			return err
		}
		if err := crud.MustExist[Player](ctx, tx, entityPlayer, in.AddresseeID); err != nil {
			return err
		}
		existing, err := builder.Select[Connection](tx).
			Where(
				betweenPair(in.RequesterID, in.AddresseeID),
				builder.In("status", StatusPending, StatusAccepted),
			).
			Exists(ctx)
		if err != nil {
			return err
		}
		if existing {
			return apperr.Conflict(duplicateConnection)
		}

		conn, err = builder.Insert[Connection](tx).Values(Connection{
			RequesterID: in.RequesterID,
			AddresseeID: in.AddresseeID,
			Status:      StatusPending,
			Message:     sanitize.Ptr(in.Message),
		}).One(ctx)
		if err != nil {
			return apperr.FromStore(err, duplicateConnection)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Created connection",
		slog.Int64("id", conn.ID),
		slog.Int64("requester_id", conn.RequesterID),
		slog.Int64("addressee_id", conn.AddresseeID))
	return conn, nil
}

// GetConnections lists connections.
func (s *Service) GetConnections(ctx context.Context, f *ConnectionFilter) ([]Connection, error) {
	return listquery.Apply(builder.Select[Connection](s.db), connectionList, f).All(ctx)
}

// GetConnectionByID returns one connection.
func (s *Service) GetConnectionByID(ctx context.Context, in *crud.ByID) (*Connection, error) {
	return crud.Get[Connection](ctx, s.db, entityConnection, in.ID)
}

// UpdateConnection changes the request message.
func (s *Service) UpdateConnection(ctx context.Context, in *UpdateConnectionInput) (*Connection, error) {
	u := builder.Update[Connection](s.db).
		SetIf(in.Message.Present(), "message", sanitize.Ptr(in.Message.Get()))
	return crud.Update(ctx, s.db, u, entityConnection, in.ID, "")
}

// RespondToConnection accepts or declines a pending request.
func (s *Service) RespondToConnection(ctx context.Context, in *RespondInput) (*Connection, error) {
	var conn *Connection
	err := s.db.WithTx(ctx, func(tx *builder.Tx) error {
		current, err := crud.Lock[Connection](ctx, tx, entityConnection, in.ID)
		if err != nil {
			return err
		}
		if current.Status != StatusPending {
			return apperr.Conflict("connection %d is already %s", in.ID, current.Status)
		}
		conn, err = crud.Update(ctx, tx, builder.Update[Connection](tx).Set("status", in.Status), entityConnection, in.ID, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DeleteConnection removes a connection. A missing id reports success=false.
func (s *Service) DeleteConnection(ctx context.Context, in *crud.ByID) (crud.DeleteResult, error) {
	return crud.Delete[Connection](ctx, s.db, entityConnection, in.ID, crud.MissingIsFalse)
}
