package builder

import (
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// scanIntoStruct scans a database row into a struct, matching result columns to
// po tags by name. Result columns with no matching field are discarded.
func scanIntoStruct(rows pgx.Rows, dest any, table *schema.TableMetadata) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct")
	}
	destValue = destValue.Elem()

	fieldDescriptions := rows.FieldDescriptions()
	scanTargets := make([]any, len(fieldDescriptions))

	for i, fd := range fieldDescriptions {
		col := table.GetColumn(fd.Name)
		if col == nil {
			continue
		}
		field := destValue.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		scanTargets[i] = field.Addr().Interface()
	}

	for i := range scanTargets {
		if scanTargets[i] == nil {
			var discard any
			scanTargets[i] = &discard
		}
	}

	if err := rows.Scan(scanTargets...); err != nil {
		return fmt.Errorf("failed to scan row: %w", err)
	}
	return nil
}

// structToValues converts a struct to column names and values for INSERT.
// It omits:
//  1. auto-increment primary keys
//  2. zero-valued fields whose column has a database default, except booleans,
//     where false is a real value and must be stored
func structToValues(model any, table *schema.TableMetadata, skipPrimaryKey bool) ([]string, []any, error) {
	modelValue := reflect.ValueOf(model)
	if modelValue.Kind() == reflect.Ptr {
		modelValue = modelValue.Elem()
	}
	if modelValue.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct")
	}

	var columns []string
	var values []any

	for _, col := range table.Columns {
		if skipPrimaryKey && table.IsPrimaryKey(col.Name) && col.AutoIncrement {
			continue
		}

		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}

		if col.Default != nil && field.IsZero() && field.Kind() != reflect.Bool {
			continue
		}

		columns = append(columns, col.Name)
		values = append(values, field.Interface())
	}

	return columns, values, nil
}
