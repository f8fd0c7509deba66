package schema

import (
	"database/sql"
	"reflect"
	"time"
)

// TypeMapper infers the PostgreSQL type of a column whose tag names none.
type TypeMapper struct{}

// NewTypeMapper creates a new TypeMapper instance.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// GoTypeToPostgreSQL maps a Go type to its PostgreSQL equivalent.
// Returns an empty string when the type must be declared in the tag.
func (tm *TypeMapper) GoTypeToPostgreSQL(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf(sql.NullTime{}):
		return "timestamptz"
	case reflect.TypeOf(sql.NullString{}):
		return "text"
	case reflect.TypeOf(sql.NullInt64{}):
		return "bigint"
	case reflect.TypeOf(sql.NullInt32{}):
		return "integer"
	case reflect.TypeOf(sql.NullFloat64{}):
		return "double precision"
	case reflect.TypeOf(sql.NullBool{}):
		return "boolean"
	}

	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return "smallint"
	case reflect.Int32, reflect.Int, reflect.Uint16:
		return "integer"
	case reflect.Int64, reflect.Uint32, reflect.Uint64:
		return "bigint"
	case reflect.Float32:
		return "real"
	case reflect.Float64:
		return "double precision"
	case reflect.String:
		return "text"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "bytea"
		}
		if elemType := tm.GoTypeToPostgreSQL(t.Elem()); elemType != "" {
			return elemType + "[]"
		}
	}
	return ""
}

// IsNullable checks if a Go type can hold SQL NULL.
func IsNullable(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		return true
	}
	switch t {
	case reflect.TypeOf(sql.NullString{}),
		reflect.TypeOf(sql.NullInt64{}),
		reflect.TypeOf(sql.NullInt32{}),
		reflect.TypeOf(sql.NullFloat64{}),
		reflect.TypeOf(sql.NullBool{}),
		reflect.TypeOf(sql.NullTime{}):
		return true
	}
	return false
}

// DefaultTypeMapper is the global type mapper instance.
var DefaultTypeMapper = NewTypeMapper()
