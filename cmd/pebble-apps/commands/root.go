package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marshallshelly/pebble-apps/internal/config"
	"github.com/marshallshelly/pebble-apps/internal/logging"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath    string
	dbURL         string
	migrationsDir string
	verbose       bool
	jsonOutput    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pebble-apps",
	Short: "Garage, gym, bookmarks, quiz and tennis over one RPC API",
	Long: `pebble-apps serves five small CRUD apps as typed procedures at
POST /rpc/<app>.<procedure>, backed by PostgreSQL.

Commands:
  serve    - Run the RPC server
  migrate  - Apply, roll back and list migrations
  schema   - Generate, print and check the app schema`,
	Version:       "0.4.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./"+config.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL, overrides database.url")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "", "Directory for migration files, overrides migrations.dir")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// loadConfig layers the CLI flags over the file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(cliLogger()).Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if migrationsDir != "" {
		cfg.Migrations.Dir = migrationsDir
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// cliLogger reports library progress on stderr with -v and is silent otherwise.
// Commands print their own results through the output package.
func cliLogger() *slog.Logger {
	if !verbose {
		return logging.Discard()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func connect(ctx context.Context, cfg *config.Config) (*runtime.DB, error) {
	db, err := runtime.Connect(ctx, runtime.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
