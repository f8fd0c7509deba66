package migration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// quoteIdent quotes a PostgreSQL identifier (table name, column name, etc.)
// to handle reserved keywords and special characters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// PlannerOptions configures migration generation behavior.
type PlannerOptions struct {
	// IfNotExists adds IF NOT EXISTS to CREATE TABLE and CREATE INDEX statements,
	// so a bootstrap migration can run against a partially created schema.
	IfNotExists bool
}

// Planner generates SQL migration statements from schema diffs.
type Planner struct {
	options PlannerOptions
}

// NewPlanner creates a new migration planner with default options.
func NewPlanner() *Planner {
	return &Planner{
		options: PlannerOptions{IfNotExists: true},
	}
}

// NewPlannerWithOptions creates a new migration planner with custom options.
func NewPlannerWithOptions(opts PlannerOptions) *Planner {
	return &Planner{options: opts}
}

// GenerateMigration generates up and down SQL from a schema diff.
// Tables are created in the order given and dropped in reverse.
func (p *Planner) GenerateMigration(diff *SchemaDiff) (upSQL, downSQL string) {
	var upStatements []string
	var downStatements []string

	for i := range diff.TablesAdded {
		table := &diff.TablesAdded[i]
		upStatements = append(upStatements, p.generateCreateTable(table))
		downStatements = append(downStatements, p.generateDropTable(table.Name))
	}

	for _, tableDiff := range diff.TablesModified {
		upAlter, downAlter := p.generateAlterTable(tableDiff)
		upStatements = append(upStatements, upAlter...)
		downStatements = append(downStatements, downAlter...)
	}

	slices.Reverse(downStatements)

	up := strings.Join(upStatements, "\n\n") + "\n"
	down := strings.Join(downStatements, "\n\n") + "\n"
	return up, down
}

// generateCreateTable generates a CREATE TABLE statement followed by its indexes.
func (p *Planner) generateCreateTable(table *schema.TableMetadata) string {
	var parts []string

	var singlePKColumn string
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) == 1 {
		singlePKColumn = table.PrimaryKey.Columns[0]
	}

	for _, col := range table.Columns {
		colDef := p.generateColumnDefinition(col)
		if col.Name == singlePKColumn {
			colDef += " PRIMARY KEY"
		}
		parts = append(parts, "    "+colDef)
	}

	// Composite primary key; a single column is declared inline.
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 1 {
		pkCols := strings.Join(table.PrimaryKey.Columns, ", ")
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)", table.PrimaryKey.Name, pkCols))
	}

	for _, fk := range table.ForeignKeys {
		parts = append(parts, "    "+p.generateForeignKeyDefinition(fk))
	}

	for _, constraint := range table.Constraints {
		switch constraint.Type {
		case schema.CheckConstraint:
			parts = append(parts, fmt.Sprintf("    CONSTRAINT %s CHECK %s", constraint.Name, constraint.Expression))
		case schema.UniqueConstraint:
			cols := strings.Join(constraint.Columns, ", ")
			parts = append(parts, fmt.Sprintf("    CONSTRAINT %s UNIQUE (%s)", constraint.Name, cols))
		}
	}

	createClause := "CREATE TABLE"
	if p.options.IfNotExists {
		createClause = "CREATE TABLE IF NOT EXISTS"
	}
	sql := fmt.Sprintf("%s %s (\n%s\n);", createClause, table.Name, strings.Join(parts, ",\n"))

	var indexStatements []string
	for _, idx := range table.Indexes {
		indexStatements = append(indexStatements, p.generateCreateIndex(table.Name, idx))
	}
	if len(indexStatements) > 0 {
		sql += "\n\n" + strings.Join(indexStatements, "\n")
	}
	return sql
}

// generateColumnDefinition generates a column definition.
func (p *Planner) generateColumnDefinition(col schema.ColumnMetadata) string {
	parts := []string{col.Name, col.SQLType}

	if !col.Nullable && !col.AutoIncrement {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT", *col.Default)
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

// generateForeignKeyDefinition generates a foreign key constraint.
func (p *Planner) generateForeignKeyDefinition(fk schema.ForeignKeyMetadata) string {
	localCols := strings.Join(fk.Columns, ", ")
	refCols := strings.Join(fk.ReferencedColumns, ", ")

	parts := []string{
		fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s)", fk.Name, localCols),
		fmt.Sprintf("REFERENCES %s (%s)", fk.ReferencedTable, refCols),
	}
	if fk.OnDelete != schema.NoAction && fk.OnDelete != "" {
		parts = append(parts, "ON DELETE "+string(fk.OnDelete))
	}
	if fk.OnUpdate != schema.NoAction && fk.OnUpdate != "" {
		parts = append(parts, "ON UPDATE "+string(fk.OnUpdate))
	}
	return strings.Join(parts, " ")
}

// generateCreateIndex generates a CREATE INDEX statement. It supports
// expression indexes, e.g. (LEAST(a, b), GREATEST(a, b)), and partial
// indexes with a WHERE predicate.
func (p *Planner) generateCreateIndex(tableName string, idx schema.IndexMetadata) string {
	parts := []string{"CREATE INDEX"}
	if idx.Unique {
		parts = []string{"CREATE UNIQUE INDEX"}
	}
	if p.options.IfNotExists {
		parts = append(parts, "IF NOT EXISTS")
	}
	parts = append(parts, idx.Name, "ON", tableName)

	if idx.Expression != "" {
		parts = append(parts, fmt.Sprintf("(%s)", idx.Expression))
	} else {
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(idx.Columns, ", ")))
	}

	if idx.Where != "" {
		parts = append(parts, "WHERE", idx.Where)
	}
	return strings.Join(parts, " ") + ";"
}

// generateDropTable generates a DROP TABLE statement.
func (p *Planner) generateDropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteIdent(tableName))
}

// generateAlterTable adds missing columns and indexes to an existing table.
func (p *Planner) generateAlterTable(diff TableDiff) (upSQL, downSQL []string) {
	tableName := diff.TableName

	for _, col := range diff.ColumnsAdded {
		upSQL = append(upSQL, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
			tableName, p.generateColumnDefinition(col)))
		downSQL = append(downSQL, fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;",
			tableName, col.Name))
	}

	for _, idx := range diff.IndexesAdded {
		upSQL = append(upSQL, p.generateCreateIndex(tableName, idx))
		downSQL = append(downSQL, fmt.Sprintf("DROP INDEX IF EXISTS %s;", idx.Name))
	}
	return upSQL, downSQL
}
