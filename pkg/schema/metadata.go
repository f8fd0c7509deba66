package schema

import (
	"reflect"
	"strings"
)

// TableMetadata describes one table derived from a tagged Go struct.
type TableMetadata struct {
	Name        string
	GoType      reflect.Type
	Columns     []ColumnMetadata
	PrimaryKey  *PrimaryKeyMetadata
	ForeignKeys []ForeignKeyMetadata
	Indexes     []IndexMetadata
	Constraints []ConstraintMetadata
}

// ColumnMetadata describes a single column.
type ColumnMetadata struct {
	Name          string
	GoField       string
	GoType        reflect.Type
	SQLType       string
	Nullable      bool
	Default       *string
	Unique        bool
	AutoIncrement bool
	Enum          []string
	Position      int
}

// PrimaryKeyMetadata describes a (possibly composite) primary key.
type PrimaryKeyMetadata struct {
	Name    string
	Columns []string
}

// ReferenceAction is the ON DELETE / ON UPDATE behaviour of a foreign key.
type ReferenceAction string

const (
	NoAction   ReferenceAction = "NO ACTION"
	Cascade    ReferenceAction = "CASCADE"
	Restrict   ReferenceAction = "RESTRICT"
	SetNull    ReferenceAction = "SET NULL"
	SetDefault ReferenceAction = "SET DEFAULT"
)

// ForeignKeyMetadata describes a foreign key constraint.
type ForeignKeyMetadata struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ReferenceAction
	OnUpdate          ReferenceAction
}

// IndexMetadata describes an index. Expression takes precedence over Columns.
type IndexMetadata struct {
	Name       string
	Columns    []string
	Expression string
	Unique     bool
	Where      string
}

// ConstraintType is the kind of a table constraint.
type ConstraintType string

const (
	CheckConstraint  ConstraintType = "CHECK"
	UniqueConstraint ConstraintType = "UNIQUE"
)

// ConstraintMetadata describes a CHECK or multi-column UNIQUE constraint.
type ConstraintMetadata struct {
	Name       string
	Type       ConstraintType
	Columns    []string
	Expression string
}

// GetColumn returns the column with the given database name.
func (t *TableMetadata) GetColumn(name string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// GetColumnByField returns the column mapped to the given Go field.
func (t *TableMetadata) GetColumnByField(goField string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].GoField == goField {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *TableMetadata) IsPrimaryKey(column string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, c := range t.PrimaryKey.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ColumnNames returns column names in declaration order.
func (t *TableMetadata) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the table declares column.
func (t *TableMetadata) HasColumn(name string) bool {
	return t.GetColumn(name) != nil
}

// References returns the distinct tables this table points at, excluding itself.
func (t *TableMetadata) References() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, fk := range t.ForeignKeys {
		if fk.ReferencedTable == t.Name || seen[fk.ReferencedTable] {
			continue
		}
		seen[fk.ReferencedTable] = true
		refs = append(refs, fk.ReferencedTable)
	}
	return refs
}

// enumCheckExpression renders `(col IN ('a', 'b'))` for an enum column.
func enumCheckExpression(column string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return "(" + column + " IN (" + strings.Join(quoted, ", ") + "))"
}
