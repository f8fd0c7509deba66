package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Executor executes and tracks database migrations.
type Executor struct {
	pool   *pgxpool.Pool
	lockID int64 // PostgreSQL advisory lock ID
	logger *slog.Logger
}

// NewExecutor creates a new migration executor.
func NewExecutor(pool *pgxpool.Pool) *Executor {
	return &Executor{
		pool:   pool,
		lockID: 1234567890,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used to report applied and rolled back migrations.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.logger = logger
	return e
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_schema_migrations_status
		ON schema_migrations(status);
	`

	if _, err := e.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// WithLock runs fn while holding the migration advisory lock. The lock is
// session scoped, so it is taken and released on one dedicated connection.
func (e *Executor) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	fnErr := fn(ctx)

	var released bool
	if err := conn.QueryRow(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", e.lockID).Scan(&released); err != nil {
		return errors.Join(fnErr, fmt.Errorf("failed to release migration lock: %w", err))
	}
	if !released {
		return errors.Join(fnErr, fmt.Errorf("lock was not held"))
	}
	return fnErr
}

// TryLock reports whether the migration lock is free right now, without keeping it.
func (e *Executor) TryLock(ctx context.Context) (bool, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", e.lockID).Scan(&acquired); err != nil {
		return false, fmt.Errorf("failed to try migration lock: %w", err)
	}
	if acquired {
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", e.lockID); err != nil {
			return false, fmt.Errorf("failed to release migration lock: %w", err)
		}
	}
	return acquired, nil
}

func (e *Executor) queryRecords(ctx context.Context, query string) ([]MigrationRecord, error) {
	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	records := make([]MigrationRecord, 0)
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.Status, &record.AppliedAt, &record.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetAppliedMigrations returns all migrations that have been applied.
func (e *Executor) GetAppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.queryRecords(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		WHERE status = 'applied'
		ORDER BY version ASC
	`)
}

// GetAllMigrations returns all migration records.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.queryRecords(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC
	`)
}

// IsMigrationApplied checks if a specific migration has been applied.
func (e *Executor) IsMigrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := e.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = $1 AND status = 'applied'",
		version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return count > 0, nil
}

// Apply executes a migration's up SQL in one transaction. On failure the
// transaction is rolled back and the failure is recorded with status failed.
func (e *Executor) Apply(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if applied {
		return fmt.Errorf("migration %s is already applied", migration.Version)
	}
	if dryRun {
		e.logger.Info("dry run: would apply migration", "version", migration.Version, "name", migration.Name)
		return nil
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, name, status) VALUES ($1, $2, 'pending') ON CONFLICT (version) DO UPDATE SET status = 'pending', error = NULL",
		migration.Version, migration.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	for i, stmt := range splitSQL(migration.UpSQL) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			failure := &runtime.MigrationError{
				Version: migration.Version,
				Message: fmt.Sprintf("statement %d failed", i+1),
				Err:     err,
			}
			e.recordFailure(ctx, migration, failure)
			return failure
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE schema_migrations SET status = 'applied', applied_at = $1, error = NULL WHERE version = $2",
		time.Now(), migration.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update migration status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	e.logger.Info("applied migration", "version", migration.Version, "name", migration.Name)
	return nil
}

// recordFailure stores the error outside the rolled back transaction.
func (e *Executor) recordFailure(ctx context.Context, migration Migration, failure error) {
	_, err := e.pool.Exec(ctx, `
		INSERT INTO schema_migrations (version, name, status, error) VALUES ($1, $2, 'failed', $3)
		ON CONFLICT (version) DO UPDATE SET status = 'failed', error = EXCLUDED.error`,
		migration.Version, migration.Name, failure.Error(),
	)
	if err != nil {
		e.logger.Error("failed to record migration failure", "version", migration.Version, "error", err)
	}
}

// Rollback executes a migration's down SQL.
func (e *Executor) Rollback(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("migration %s is not applied", migration.Version)
	}
	if dryRun {
		e.logger.Info("dry run: would roll back migration", "version", migration.Version, "name", migration.Name)
		return nil
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range splitSQL(migration.DownSQL) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return &runtime.MigrationError{
				Version: migration.Version,
				Message: fmt.Sprintf("rollback statement %d failed", i+1),
				Err:     err,
			}
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
		return fmt.Errorf("failed to delete migration record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rollback: %w", err)
	}

	e.logger.Info("rolled back migration", "version", migration.Version, "name", migration.Name)
	return nil
}

// ApplyAll applies all pending migrations in order and returns how many ran.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration, dryRun bool) (int, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}
	appliedMap := make(map[string]bool, len(applied))
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	count := 0
	for _, migration := range migrations {
		if appliedMap[migration.Version] {
			continue
		}
		if err := e.Apply(ctx, migration, dryRun); err != nil {
			return count, fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		count++
	}
	return count, nil
}

// RollbackTo rolls back all migrations after the specified version, newest first.
func (e *Executor) RollbackTo(ctx context.Context, targetVersion string, migrations []Migration, dryRun bool) (int, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	migrationMap := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		migrationMap[m.Version] = m
	}

	count := 0
	for i := len(applied) - 1; i >= 0; i-- {
		record := applied[i]
		if record.Version <= targetVersion {
			break
		}
		migration, exists := migrationMap[record.Version]
		if !exists {
			return count, fmt.Errorf("migration file not found for version %s", record.Version)
		}
		if err := e.Rollback(ctx, migration, dryRun); err != nil {
			return count, fmt.Errorf("failed to rollback migration %s: %w", record.Version, err)
		}
		count++
	}
	return count, nil
}

// GetStatus returns the status of every known migration, pending ones included.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	all, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	recorded := make(map[string]MigrationRecord, len(all))
	for _, m := range all {
		recorded[m.Version] = m
	}

	records := make([]MigrationRecord, 0, len(migrations))
	for _, migration := range migrations {
		if record, exists := recorded[migration.Version]; exists {
			records = append(records, record)
			continue
		}
		records = append(records, MigrationRecord{
			Version: migration.Version,
			Name:    migration.Name,
			Status:  StatusPending,
		})
	}
	return records, nil
}

// Validate checks that all migrations in the database have corresponding files.
func (e *Executor) Validate(ctx context.Context, migrations []Migration) error {
	dbMigrations, err := e.GetAllMigrations(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		known[m.Version] = true
	}

	var missing []string
	for _, record := range dbMigrations {
		if !known[record.Version] {
			missing = append(missing, record.Version)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing migration files: %v", missing)
	}
	return nil
}

// Sync brings the database up to tables by applying a generated migration for
// whatever is missing. It returns nil when nothing was missing.
func (e *Executor) Sync(ctx context.Context, tables []*schema.TableMetadata) (*Migration, error) {
	current, err := NewIntrospector(e.pool).IntrospectSchema(ctx)
	if err != nil {
		return nil, err
	}
	diff := NewDiffer().Compare(tables, current)
	if !diff.HasChanges() {
		return nil, nil
	}

	upSQL, downSQL := NewPlanner().GenerateMigration(diff)
	migration := Migration{
		Version: GenerateVersion(),
		Name:    "auto_sync",
		UpSQL:   upSQL,
		DownSQL: downSQL,
	}
	if err := e.Apply(ctx, migration, false); err != nil {
		return nil, err
	}
	return &migration, nil
}

// splitSQL splits a SQL string into statements on semicolons, dropping
// comment lines and empty statements.
func splitSQL(sql string) []string {
	var cleanedLines []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		cleanedLines = append(cleanedLines, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleanedLines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
