package commands

import (
	"context"
	"fmt"

	"github.com/marshallshelly/pebble-apps/cmd/pebble-apps/output"
	"github.com/marshallshelly/pebble-apps/cmd/pebble-apps/tui"
	"github.com/marshallshelly/pebble-apps/pkg/migration"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/spf13/cobra"
)

var (
	// Migrate flags
	dryRun      bool
	all         bool
	steps       int
	target      string
	interactive bool
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run the SQL migrations in the migrations directory.

Subcommands:
  up      - Apply pending migrations
  down    - Rollback migrations
  status  - Show migration status`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations to update the database schema.

Examples:
  pebble-apps migrate up --all              # Apply all pending migrations
  pebble-apps migrate up --steps 1          # Apply next migration
  pebble-apps migrate up --dry-run --all    # Preview migrations without applying
  pebble-apps migrate up -i                 # Pick migrations interactively`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp(cmd.Context())
	},
}

// migrateDownCmd rolls back migrations
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback migrations",
	Long: `Rollback applied migrations to revert database schema changes.

Examples:
  pebble-apps migrate down --steps 1        # Rollback last migration
  pebble-apps migrate down --target VERSION # Rollback everything after VERSION
  pebble-apps migrate down --dry-run        # Preview rollback without executing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateDown(cmd.Context())
	},
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Show the status of all migrations (pending, applied, failed).

Examples:
  pebble-apps migrate status                # Show migration status
  pebble-apps migrate status --json         # Output in JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")
	migrateUpCmd.Flags().BoolVar(&all, "all", false, "Apply all pending migrations")
	migrateUpCmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to apply")

	migrateDownCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateDownCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview rollback without executing")
	migrateDownCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to rollback")
	migrateDownCmd.Flags().StringVar(&target, "target", "", "Rollback every migration after this version")
}

// migrationSet is an open connection, its executor and the migrations on disk.
type migrationSet struct {
	db         *runtime.DB
	executor   *migration.Executor
	migrations []migration.Migration
}

func openMigrations(ctx context.Context) (*migrationSet, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	migrations, err := migration.NewGenerator(cfg.Migrations.Dir).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	executor := migration.NewExecutor(db.Pool()).WithLogger(cliLogger())
	if err := executor.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return &migrationSet{db: db, executor: executor, migrations: migrations}, nil
}

// pending returns the migrations not yet applied, oldest first.
func pending(migrations []migration.Migration, applied []migration.MigrationRecord) []migration.Migration {
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}
	var out []migration.Migration
	for _, m := range migrations {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

func runMigrateUp(ctx context.Context) error {
	if !interactive && !all && steps <= 0 {
		return fmt.Errorf("must specify --all or --steps")
	}

	set, err := openMigrations(ctx)
	if err != nil {
		return err
	}
	defer set.db.Close()

	if len(set.migrations) == 0 {
		output.Warning("No migrations found")
		return nil
	}

	if interactive {
		status, err := set.executor.GetStatus(ctx, set.migrations)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		return tui.RunMigrateUI(ctx, tui.ActionUp, set.executor, set.migrations, status)
	}

	return set.executor.WithLock(ctx, func(ctx context.Context) error {
		applied, err := set.executor.GetAppliedMigrations(ctx)
		if err != nil {
			return fmt.Errorf("failed to get applied migrations: %w", err)
		}
		toApply := pending(set.migrations, applied)
		if !all && len(toApply) > steps {
			toApply = toApply[:steps]
		}
		if len(toApply) == 0 {
			output.Info("No pending migrations")
			return nil
		}

		if dryRun {
			output.Section("DRY RUN - Preview")
			output.Info("The following migrations would be applied:")
			for _, mig := range toApply {
				output.Muted("  %s %s - %s", output.StatusIcon("pending"), mig.Version, mig.Name)
			}
			return nil
		}

		output.Section("Applying Migrations")
		for _, mig := range toApply {
			output.Info("Applying %s - %s...", mig.Version, mig.Name)
			if err := set.executor.Apply(ctx, mig, false); err != nil {
				output.Error("Failed to apply migration %s: %v", mig.Version, err)
				return fmt.Errorf("failed to apply migration %s: %w", mig.Version, err)
			}
			output.Success("Applied %s", mig.Version)
		}
		output.Success("Successfully applied %d migration(s)", len(toApply))
		return nil
	})
}

func runMigrateDown(ctx context.Context) error {
	set, err := openMigrations(ctx)
	if err != nil {
		return err
	}
	defer set.db.Close()

	if interactive {
		status, err := set.executor.GetStatus(ctx, set.migrations)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		return tui.RunMigrateUI(ctx, tui.ActionDown, set.executor, set.migrations, status)
	}

	return set.executor.WithLock(ctx, func(ctx context.Context) error {
		if target != "" {
			n, err := set.executor.RollbackTo(ctx, target, set.migrations, dryRun)
			if err != nil {
				output.Error("Failed to rollback to %s: %v", target, err)
				return err
			}
			if dryRun {
				output.Info("DRY RUN - %d migration(s) after %s would be rolled back", n, target)
				return nil
			}
			output.Success("Rolled back %d migration(s) to version %s", n, target)
			return nil
		}

		applied, err := set.executor.GetAppliedMigrations(ctx)
		if err != nil {
			return fmt.Errorf("failed to get applied migrations: %w", err)
		}
		if len(applied) == 0 {
			output.Info("No migrations to rollback")
			return nil
		}

		byVersion := make(map[string]migration.Migration, len(set.migrations))
		for _, m := range set.migrations {
			byVersion[m.Version] = m
		}

		toRollback := min(max(steps, 1), len(applied))
		if dryRun {
			output.Section("DRY RUN - Preview")
			output.Info("The following migrations would be rolled back:")
			for i := len(applied) - 1; i >= len(applied)-toRollback; i-- {
				output.Muted("  %s %s - %s", output.StatusIcon("applied"), applied[i].Version, applied[i].Name)
			}
			return nil
		}

		output.Section("Rolling Back Migrations")
		for i := range toRollback {
			record := applied[len(applied)-1-i]
			mig, ok := byVersion[record.Version]
			if !ok {
				return fmt.Errorf("migration file not found for version %s", record.Version)
			}
			output.Warning("Rolling back %s - %s...", mig.Version, mig.Name)
			if err := set.executor.Rollback(ctx, mig, false); err != nil {
				output.Error("Failed to rollback migration %s: %v", mig.Version, err)
				return fmt.Errorf("failed to rollback migration %s: %w", mig.Version, err)
			}
			output.Success("Rolled back %s", mig.Version)
		}
		output.Success("Successfully rolled back %d migration(s)", toRollback)
		return nil
	})
}

func runMigrateStatus(ctx context.Context) error {
	set, err := openMigrations(ctx)
	if err != nil {
		return err
	}
	defer set.db.Close()

	status, err := set.executor.GetStatus(ctx, set.migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	if err := set.executor.Validate(ctx, set.migrations); err != nil {
		output.Warning("%v", err)
	}
	if free, err := set.executor.TryLock(ctx); err == nil && !free {
		output.Warning("Another process is running migrations")
	}

	if jsonOutput {
		return output.JSON(status)
	}
	if len(status) == 0 {
		output.Warning("No migrations found")
		return nil
	}

	counts := make(map[migration.MigrationStatus]int)
	rows := make([][]string, 0, len(status))
	for _, record := range status {
		appliedAt := "N/A"
		if record.AppliedAt != nil {
			appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
		}
		counts[record.Status]++
		rows = append(rows, []string{
			record.Version,
			record.Name,
			output.StatusIcon(string(record.Status)) + " " + string(record.Status),
			appliedAt,
		})
	}
	output.Table([]string{"VERSION", "NAME", "STATUS", "APPLIED AT"}, rows)

	summary := fmt.Sprintf("Summary: %d applied, %d pending", counts[migration.StatusApplied], counts[migration.StatusPending])
	if n := counts[migration.StatusFailed]; n > 0 {
		summary += fmt.Sprintf(", %d failed", n)
	}
	output.Muted("\n%s", summary)
	return nil
}
