// Package runtime provides the database handle and error classification shared by the query builder.
package runtime

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrNoPrimaryKey is returned when a table has no primary key.
	ErrNoPrimaryKey = errors.New("no primary key defined")

	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key value")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrCheckViolation is returned when a CHECK or NOT NULL constraint is violated.
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrTransactionClosed is returned when operating on a closed transaction.
	ErrTransactionClosed = errors.New("transaction already closed")
)

// PostgreSQL SQLSTATE codes that map onto the sentinel errors above.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// QueryError represents a query execution error.
type QueryError struct {
	Query string
	Err   error
	// Kind is one of the sentinel errors when the failure was classified, nil otherwise.
	Kind error
	// Constraint is the violated constraint name reported by the server, if any.
	Constraint string
}

// NewQueryError wraps err and classifies PostgreSQL constraint violations.
func NewQueryError(query string, err error) *QueryError {
	qe := &QueryError{Query: query, Err: err}

	if errors.Is(err, pgx.ErrNoRows) {
		qe.Kind = ErrNotFound
		return qe
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		qe.Constraint = pgErr.ConstraintName
		switch pgErr.Code {
		case codeUniqueViolation:
			qe.Kind = ErrDuplicateKey
		case codeForeignKeyViolation:
			qe.Kind = ErrForeignKeyViolation
		case codeCheckViolation, codeNotNullViolation:
			qe.Kind = ErrCheckViolation
		}
	}
	return qe
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

// Unwrap exposes both the driver error and the classification, so errors.Is works for either.
func (e *QueryError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Kind}
}

// MigrationError represents a migration error.
type MigrationError struct {
	Version string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration error (version %s): %s: %v", e.Version, e.Message, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
