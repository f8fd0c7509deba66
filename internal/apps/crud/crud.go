// Package crud holds the pieces every app service shares: id inputs, delete
// results and the get, update and delete helpers over pkg/builder.
package crud

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
)

// ByID is the input of get-by-id and delete procedures.
type ByID struct {
	ID int64 `json:"id" binding:"required,min=1"`
}

// DeleteResult is returned by every delete procedure.
type DeleteResult struct {
	Success bool `json:"success"`
}

// MissingPolicy says what deleting an id that does not exist does.
type MissingPolicy int

const (
	// MissingFails returns a not-found error.
	MissingFails MissingPolicy = iota
	// MissingIsFalse returns success=false.
	MissingIsFalse
)

// TouchUpdatedAt moves updated_at forward even when two updates land in the
// same transaction timestamp.
const TouchUpdatedAt = "GREATEST(now(), updated_at + interval '1 microsecond')"

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

// Today is the calendar date of the clock.
func (c Clock) Today() dates.Date {
	if c == nil {
		return dates.Of(time.Now())
	}
	return dates.Of(c())
}

// Now is the clock's time.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Get loads the row with id or fails with "<entity> with id <id> not found".
func Get[T any](ctx context.Context, q builder.Querier, entity string, id int64) (*T, error) {
	row, err := builder.Select[T](q).Where(builder.Eq("id", id)).First(ctx)
	if errors.Is(err, runtime.ErrNotFound) {
		return nil, apperr.NotFound(entity, id)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Lock is Get with SELECT ... FOR UPDATE, for use inside a transaction.
func Lock[T any](ctx context.Context, tx *builder.Tx, entity string, id int64) (*T, error) {
	row, err := builder.Select[T](tx).Where(builder.Eq("id", id)).ForUpdate().First(ctx)
	if errors.Is(err, runtime.ErrNotFound) {
		return nil, apperr.NotFound(entity, id)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// MustExist fails with not-found unless a row with id exists. Writes call it for
// every referenced id before mutating anything.
func MustExist[T any](ctx context.Context, q builder.Querier, entity string, id int64) error {
	ok, err := builder.Select[T](q).Where(builder.Eq("id", id)).Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(entity, id)
	}
	return nil
}

// Update applies the assignments collected in u to row id, refreshes
// updated_at and returns the stored row. A patch with no fields still touches
// updated_at. conflict is the message for unique violations.
func Update[T any](ctx context.Context, q builder.Querier, u *builder.UpdateQuery[T], entity string, id int64, conflict string) (*T, error) {
	return Patch(ctx, q, u.SetExpr("updated_at", TouchUpdatedAt), entity, id, conflict)
}

// Patch is Update for tables without updated_at. A patch with no fields returns
// the row unchanged.
func Patch[T any](ctx context.Context, q builder.Querier, u *builder.UpdateQuery[T], entity string, id int64, conflict string) (*T, error) {
	if !u.HasSets() {
		return Get[T](ctx, q, entity, id)
	}
	row, err := u.Where(builder.Eq("id", id)).One(ctx)
	if errors.Is(err, runtime.ErrNotFound) {
		return nil, apperr.NotFound(entity, id)
	}
	if err != nil {
		return nil, apperr.FromStore(err, conflict)
	}
	return row, nil
}

// Delete removes row id. Dependent rows go with it through the foreign keys.
func Delete[T any](ctx context.Context, q builder.Querier, entity string, id int64, missing MissingPolicy) (DeleteResult, error) {
	n, err := builder.Delete[T](q).Where(builder.Eq("id", id)).Exec(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	if n == 0 {
		if missing == MissingFails {
			return DeleteResult{}, apperr.NotFound(entity, id)
		}
		return DeleteResult{Success: false}, nil
	}
	return DeleteResult{Success: true}, nil
}

// Lower trims and lowercases emails and tag names.
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
