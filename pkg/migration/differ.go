package migration

import (
	"slices"

	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Differ compares the model schema with the database schema.
type Differ struct{}

// NewDiffer creates a new schema differ.
func NewDiffer() *Differ {
	return &Differ{}
}

// Compare reports what dbSchema is missing from codeSchema. codeSchema must be in
// dependency order (registry.Ordered); TablesAdded keeps that order so the planner
// can create parents before children.
func (d *Differ) Compare(codeSchema []*schema.TableMetadata, dbSchema map[string]*schema.TableMetadata) *SchemaDiff {
	diff := &SchemaDiff{
		TablesAdded:    make([]schema.TableMetadata, 0),
		TablesModified: make([]TableDiff, 0),
		TablesUnknown:  make([]string, 0),
	}

	known := make(map[string]bool, len(codeSchema))
	for _, codeTable := range codeSchema {
		known[codeTable.Name] = true

		dbTable, exists := dbSchema[codeTable.Name]
		if !exists {
			diff.TablesAdded = append(diff.TablesAdded, *codeTable)
			continue
		}
		if tableDiff := d.compareTable(codeTable, dbTable); tableDiff.HasChanges() {
			diff.TablesModified = append(diff.TablesModified, tableDiff)
		}
	}

	for tableName := range dbSchema {
		if !known[tableName] {
			diff.TablesUnknown = append(diff.TablesUnknown, tableName)
		}
	}
	slices.Sort(diff.TablesUnknown)

	return diff
}

// compareTable lists the columns and indexes of codeTable that dbTable lacks,
// in declaration order.
func (d *Differ) compareTable(codeTable, dbTable *schema.TableMetadata) TableDiff {
	diff := TableDiff{
		TableName:    codeTable.Name,
		ColumnsAdded: make([]schema.ColumnMetadata, 0),
		IndexesAdded: make([]schema.IndexMetadata, 0),
	}

	for _, col := range codeTable.Columns {
		if !dbTable.HasColumn(col.Name) {
			diff.ColumnsAdded = append(diff.ColumnsAdded, col)
		}
	}

	dbIndexes := make(map[string]bool, len(dbTable.Indexes))
	for _, idx := range dbTable.Indexes {
		dbIndexes[idx.Name] = true
	}
	for _, idx := range codeTable.Indexes {
		if !dbIndexes[idx.Name] {
			diff.IndexesAdded = append(diff.IndexesAdded, idx)
		}
	}

	return diff
}
