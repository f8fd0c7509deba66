package commands

import (
	"context"
	"fmt"

	"github.com/marshallshelly/pebble-apps/cmd/pebble-apps/output"
	"github.com/marshallshelly/pebble-apps/internal/apps"
	"github.com/marshallshelly/pebble-apps/pkg/migration"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
	"github.com/spf13/cobra"
)

var (
	// Schema flags
	migrationName string
	empty         bool
	againstDB     bool
	showDown      bool
)

// schemaCmd groups the schema commands
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate, print and check the app schema",
	Long: `Work with the schema declared by the app models.

Subcommands:
  generate  - Write a migration from the models
  sql       - Print the bootstrap SQL
  check     - Report what the live database is missing`,
}

// schemaGenerateCmd writes migration files
var schemaGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate migration files",
	Long: `Generate timestamped up/down SQL migration files from the app models.

Without --diff the migration creates every table from scratch, parents
before children. With --diff it covers only what the live database lacks.

Examples:
  pebble-apps schema generate --name init                 # Bootstrap migration
  pebble-apps schema generate --name add_bio --diff       # Only what is missing
  pebble-apps schema generate --name backfill --empty     # Empty migration to edit by hand`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchemaGenerate(cmd.Context())
	},
}

// schemaSQLCmd prints the bootstrap SQL
var schemaSQLCmd = &cobra.Command{
	Use:   "sql",
	Short: "Print the bootstrap SQL",
	Long: `Print the SQL that creates every app table, or drops them with --down.

Examples:
  pebble-apps schema sql                    # CREATE statements
  pebble-apps schema sql --down             # DROP statements
  pebble-apps schema sql --json             # Both, as JSON`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchemaSQL()
	},
}

// schemaCheckCmd compares the models with the database
var schemaCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the database against the models",
	Long: `Introspect the database and report the tables, columns and indexes it is
missing. Exits non-zero when anything is missing.

Examples:
  pebble-apps schema check
  pebble-apps schema check --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchemaCheck(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaGenerateCmd, schemaSQLCmd, schemaCheckCmd)

	schemaGenerateCmd.Flags().StringVarP(&migrationName, "name", "n", "", "Migration name (required)")
	schemaGenerateCmd.Flags().BoolVar(&empty, "empty", false, "Generate empty migration for manual editing")
	schemaGenerateCmd.Flags().BoolVar(&againstDB, "diff", false, "Only include what the live database is missing")
	_ = schemaGenerateCmd.MarkFlagRequired("name")

	schemaSQLCmd.Flags().BoolVar(&showDown, "down", false, "Print the down SQL instead")
}

// liveDiff compares the app models with the database at the configured URL.
func liveDiff(ctx context.Context) (*migration.SchemaDiff, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	tables, err := migration.OrderedTables(apps.Models()...)
	if err != nil {
		return nil, err
	}

	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	current, err := migration.NewIntrospector(db.Pool()).IntrospectSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect database: %w", err)
	}
	return migration.NewDiffer().Compare(tables, current), nil
}

func runSchemaGenerate(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	generator := migration.NewGenerator(cfg.Migrations.Dir)

	var file *migration.MigrationFile
	switch {
	case empty:
		file, err = generator.GenerateEmpty(migrationName)
	case againstDB:
		diff, derr := liveDiff(ctx)
		if derr != nil {
			return derr
		}
		if !diff.HasChanges() {
			output.Info("No schema changes detected. Database is in sync with the models.")
			return nil
		}
		printDiff(diff)
		file, err = generator.Generate(migrationName, diff)
	default:
		tables, terr := migration.OrderedTables(apps.Models()...)
		if terr != nil {
			return terr
		}
		file, err = generator.Generate(migrationName, migration.NewDiffer().Compare(tables, nil))
	}
	if err != nil {
		return fmt.Errorf("failed to generate migration: %w", err)
	}

	output.Success("Created migration: %s", file.Version)
	output.Muted("  Up:   %s", file.UpPath)
	output.Muted("  Down: %s", file.DownPath)
	if !empty {
		output.Info("Review the generated SQL files before applying the migration.")
	}
	return nil
}

func runSchemaSQL() error {
	m, err := migration.FromModels("bootstrap", apps.Models()...)
	if err != nil {
		return err
	}
	if jsonOutput {
		return output.JSON(map[string]string{"up": m.UpSQL, "down": m.DownSQL})
	}
	if showDown {
		_, err = fmt.Fprint(output.Writer, m.DownSQL)
		return err
	}
	_, err = fmt.Fprint(output.Writer, m.UpSQL)
	return err
}

// checkReport is the JSON form of schema check.
type checkReport struct {
	InSync         bool                `json:"in_sync"`
	MissingTables  []string            `json:"missing_tables"`
	MissingColumns map[string][]string `json:"missing_columns"`
	MissingIndexes map[string][]string `json:"missing_indexes"`
	UnknownTables  []string            `json:"unknown_tables"`
}

func newCheckReport(diff *migration.SchemaDiff) checkReport {
	report := checkReport{
		InSync:         !diff.HasChanges(),
		MissingTables:  make([]string, 0, len(diff.TablesAdded)),
		MissingColumns: make(map[string][]string),
		MissingIndexes: make(map[string][]string),
		UnknownTables:  diff.TablesUnknown,
	}
	for _, table := range diff.TablesAdded {
		report.MissingTables = append(report.MissingTables, table.Name)
	}
	for _, td := range diff.TablesModified {
		for _, col := range td.ColumnsAdded {
			report.MissingColumns[td.TableName] = append(report.MissingColumns[td.TableName], col.Name)
		}
		for _, idx := range td.IndexesAdded {
			report.MissingIndexes[td.TableName] = append(report.MissingIndexes[td.TableName], idx.Name)
		}
	}
	return report
}

func runSchemaCheck(ctx context.Context) error {
	diff, err := liveDiff(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := output.JSON(newCheckReport(diff)); err != nil {
			return err
		}
	} else {
		if diff.HasChanges() {
			printDiff(diff)
		} else {
			output.Success("Database is in sync with the models.")
		}
		for _, name := range diff.TablesUnknown {
			output.Warning("Table %s is not declared by any model", name)
		}
	}

	if diff.HasChanges() {
		return fmt.Errorf("database schema is missing %d table(s) and changes to %d table(s)",
			len(diff.TablesAdded), len(diff.TablesModified))
	}
	return nil
}

func printDiff(diff *migration.SchemaDiff) {
	output.Section("Detected Schema Changes")
	if len(diff.TablesAdded) > 0 {
		output.Success("Tables to add: %d", len(diff.TablesAdded))
		for _, table := range diff.TablesAdded {
			output.Muted("    + %s (%d columns)", table.Name, len(table.Columns))
		}
	}
	if len(diff.TablesModified) > 0 {
		output.Info("Tables to modify: %d", len(diff.TablesModified))
		for _, td := range diff.TablesModified {
			output.Muted("    ~ %s", td.TableName)
			for _, col := range td.ColumnsAdded {
				output.Muted("      + column %s", describeColumn(col))
			}
			for _, idx := range td.IndexesAdded {
				output.Muted("      + index %s", idx.Name)
			}
		}
	}
}

func describeColumn(col schema.ColumnMetadata) string {
	s := col.Name + " " + col.SQLType
	if !col.Nullable {
		s += " NOT NULL"
	}
	return s
}
