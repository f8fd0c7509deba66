// Package migration plans, writes and applies schema migrations for the registered models.
package migration

import (
	"time"

	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Migration represents a database migration.
type Migration struct {
	Version   string    // Version/timestamp (e.g., "20240101120000")
	Name      string    // Migration name (e.g., "create_gym_tables")
	UpSQL     string    // SQL for applying the migration
	DownSQL   string    // SQL for rolling back the migration
	AppliedAt time.Time // When the migration was applied
}

// MigrationFile represents a migration file on disk.
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// SchemaDiff is what the live database is missing compared to the models.
// Migrations only ever add; dropping or altering existing columns is left to
// hand-written migrations.
type SchemaDiff struct {
	TablesAdded    []schema.TableMetadata // Tables to create, in dependency order
	TablesModified []TableDiff            // Existing tables missing columns or indexes
	// TablesUnknown are tables in the database that no model declares.
	TablesUnknown []string
}

// TableDiff represents what one existing table is missing.
type TableDiff struct {
	TableName    string
	ColumnsAdded []schema.ColumnMetadata
	IndexesAdded []schema.IndexMetadata
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// StatusPending means the migration has not been applied.
	StatusPending MigrationStatus = "pending"
	// StatusApplied means the migration has been applied.
	StatusApplied MigrationStatus = "applied"
	// StatusFailed means the migration failed to apply.
	StatusFailed MigrationStatus = "failed"
)

// MigrationRecord represents a migration in the tracking table.
type MigrationRecord struct {
	Version   string
	Name      string
	Status    MigrationStatus
	AppliedAt *time.Time
	Error     *string
}

// HasChanges returns true if there are any schema differences.
func (d *SchemaDiff) HasChanges() bool {
	return len(d.TablesAdded) > 0 || len(d.TablesModified) > 0
}

// HasChanges returns true if the table is missing anything.
func (t *TableDiff) HasChanges() bool {
	return len(t.ColumnsAdded) > 0 || len(t.IndexesAdded) > 0
}

// GenerateVersion generates a timestamp-based version string.
// Format: YYYYMMDDHHmmss (e.g., "20240101120000")
func GenerateVersion() string {
	return time.Now().UTC().Format("20060102150405")
}

// GenerateFileName generates a migration filename.
// Format: {version}_{name}.{up|down}.sql
func GenerateFileName(version, name, direction string) string {
	return version + "_" + name + "." + direction + ".sql"
}
