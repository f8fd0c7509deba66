// Package optional provides a JSON field type that tells "omitted" apart from
// "present", for sparse update payloads.
//
// A Field[T] that was not in the JSON document is absent. A field sent as null is
// present with the zero value of T, which is only allowed when T can hold nil
// (pointers, slices, maps); for any other T a null is a decode error. So a patch
// declares Field[*string] for a clearable column and Field[string] for a required one.
package optional

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Field holds a value that may be absent.
type Field[T any] struct {
	value   T
	present bool
}

// Some returns a present field.
func Some[T any](v T) Field[T] {
	return Field[T]{value: v, present: true}
}

// None returns an absent field.
func None[T any]() Field[T] {
	return Field[T]{}
}

// Present reports whether the field was supplied, including as null.
func (f Field[T]) Present() bool {
	return f.present
}

// Value returns the value and whether the field is present.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.present
}

// Get returns the value, or the zero value when absent.
func (f Field[T]) Get() T {
	return f.value
}

// Or returns the value when present and fallback otherwise.
func (f Field[T]) Or(fallback T) T {
	if f.present {
		return f.value
	}
	return fallback
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the key is in the document.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var zero T
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if !nilable(reflect.TypeOf(&zero).Elem()) {
			return fmt.Errorf("null is not allowed for %T", zero)
		}
		f.value, f.present = zero, true
		return nil
	}
	if err := json.Unmarshal(data, &f.value); err != nil {
		return err
	}
	f.present = true
	return nil
}

// MarshalJSON implements json.Marshaler. An absent field encodes as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// ValidationValue is what struct validation sees: nil when absent or null,
// otherwise a pointer to the value. Rules written as "omitempty,..." skip
// absent fields, and because the validator treats a value reached through a
// pointer as supplied, a present "" or 0 is still checked.
func (f Field[T]) ValidationValue() any {
	if !f.present {
		return nil
	}
	rv := reflect.ValueOf(&f.value).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return f.value
	}
	return &f.value
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}
