package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Introspector inspects the live database schema. It reads what the differ
// compares: table names, columns and index names in the public schema.
type Introspector struct {
	pool *pgxpool.Pool
}

// NewIntrospector creates a new database introspector.
func NewIntrospector(pool *pgxpool.Pool) *Introspector {
	return &Introspector{pool: pool}
}

// IntrospectSchema introspects every user table except schema_migrations.
func (i *Introspector) IntrospectSchema(ctx context.Context) (map[string]*schema.TableMetadata, error) {
	tableNames, err := i.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	tables := make(map[string]*schema.TableMetadata, len(tableNames))
	for _, tableName := range tableNames {
		table, err := i.IntrospectTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", tableName, err)
		}
		tables[tableName] = table
	}
	return tables, nil
}

// IntrospectTable introspects a single table.
func (i *Introspector) IntrospectTable(ctx context.Context, tableName string) (*schema.TableMetadata, error) {
	columns, err := i.getColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	indexes, err := i.getIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	return &schema.TableMetadata{
		Name:    tableName,
		Columns: columns,
		Indexes: indexes,
	}, nil
}

// getTableNames retrieves all table names in the public schema.
func (i *Introspector) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		  AND table_name != 'schema_migrations'
		ORDER BY table_name
	`

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

// getColumns retrieves column information for a table.
func (i *Introspector) getColumns(ctx context.Context, tableName string) ([]schema.ColumnMetadata, error) {
	query := `
		SELECT
			column_name,
			data_type,
			udt_name,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			is_nullable,
			column_default,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := i.pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnMetadata
	for rows.Next() {
		var col schema.ColumnMetadata
		var dataType, udtName, isNullable string
		var maxLength, precision, scale *int
		var position int

		if err := rows.Scan(
			&col.Name,
			&dataType,
			&udtName,
			&maxLength,
			&precision,
			&scale,
			&isNullable,
			&col.Default,
			&position,
		); err != nil {
			return nil, err
		}

		col.SQLType = buildSQLType(dataType, udtName, maxLength, precision, scale)
		col.Nullable = isNullable == "YES"
		col.Position = position - 1
		col.AutoIncrement = col.Default != nil && strings.Contains(*col.Default, "nextval")
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// getIndexes retrieves index names for a table, including the ones backing constraints.
func (i *Introspector) getIndexes(ctx context.Context, tableName string) ([]schema.IndexMetadata, error) {
	query := `
		SELECT indexname
		FROM pg_indexes
		WHERE schemaname = 'public' AND tablename = $1
		ORDER BY indexname
	`

	rows, err := i.pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.IndexMetadata
	for rows.Next() {
		var idx schema.IndexMetadata
		if err := rows.Scan(&idx.Name); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// buildSQLType converts information_schema type columns into the spelling used in po tags.
func buildSQLType(dataType, udtName string, maxLength, precision, scale *int) string {
	switch dataType {
	case "character varying":
		if maxLength != nil {
			return fmt.Sprintf("varchar(%d)", *maxLength)
		}
		return "varchar"
	case "character":
		if maxLength != nil {
			return fmt.Sprintf("char(%d)", *maxLength)
		}
		return "char"
	case "numeric":
		if precision != nil && scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *precision, *scale)
		}
		return "numeric"
	case "timestamp with time zone":
		return "timestamptz"
	case "ARRAY":
		// Array types use udt_name with a leading underscore.
		if base, ok := strings.CutPrefix(udtName, "_"); ok {
			return base + "[]"
		}
		return udtName
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}
