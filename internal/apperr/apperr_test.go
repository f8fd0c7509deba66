package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/stretchr/testify/assert"
)

func TestNotFoundMessageContainsID(t *testing.T) {
	err := NotFound("Car", int64(42))
	assert.Equal(t, "Car with id 42 not found", err.Error())
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", err)))
}

func TestFromStore(t *testing.T) {
	dup := &runtime.QueryError{Err: errors.New("pg"), Kind: runtime.ErrDuplicateKey}
	fk := &runtime.QueryError{Err: errors.New("pg"), Kind: runtime.ErrForeignKeyViolation}
	plain := errors.New("connection reset")

	err := FromStore(dup, "email already in use")
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "email already in use", err.Error())
	assert.ErrorIs(t, err, runtime.ErrDuplicateKey)

	generic := FromStore(dup, "")
	assert.Equal(t, KindConflict, KindOf(generic))
	assert.Equal(t, "record already exists", generic.Error(), "query text stays out of the message")

	assert.Equal(t, KindNotFound, KindOf(FromStore(fk, "")))
	assert.Same(t, plain, FromStore(plain, ""))
	assert.NoError(t, FromStore(nil, ""))

	existing := Conflict("class is full")
	assert.Same(t, existing, FromStore(existing, "other"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("make is required"), http.StatusBadRequest},
		{NotFound("Member", 1), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{RateLimited(0, "slow down"), http.StatusTooManyRequests},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
