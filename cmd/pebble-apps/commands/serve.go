package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marshallshelly/pebble-apps/internal/apps"
	"github.com/marshallshelly/pebble-apps/internal/config"
	"github.com/marshallshelly/pebble-apps/internal/logging"
	"github.com/marshallshelly/pebble-apps/internal/ratelimit"
	"github.com/marshallshelly/pebble-apps/internal/rpc"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
	"github.com/marshallshelly/pebble-apps/pkg/migration"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	// Serve flags
	serveAddr string
	autoApply bool
)

// serveCmd runs the RPC server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RPC server",
	Long: `Run the RPC server until SIGINT or SIGTERM.

Examples:
  pebble-apps serve                          # Listen on http.addr
  pebble-apps serve --addr :9000             # Override the listen address
  pebble-apps serve --auto-apply             # Create missing tables and columns first`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), cmd.Flags().Changed("auto-apply"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides http.addr")
	serveCmd.Flags().BoolVar(&autoApply, "auto-apply", false, "Create missing tables and columns before serving, overrides migrations.auto_apply")
}

func runServe(ctx context.Context, autoApplySet bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}
	if autoApplySet {
		cfg.Migrations.AutoApply = autoApply
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Migrations.AutoApply {
		if err := syncSchema(ctx, db, logger); err != nil {
			return err
		}
	}

	limiter := ratelimit.New(nil)
	if cfg.Redis.URL != "" {
		client, err := ratelimit.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("Rate limiting disabled", slog.String("error", err.Error()))
		} else {
			defer func() { _ = client.Close() }()
			limiter = ratelimit.New(client)
		}
	}

	srv := rpc.NewServer(rpc.Options{
		Logger:      logger,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Health:      db,
	})
	apps.Register(srv, apps.Deps{
		DB:           builder.New(db),
		Logger:       logger,
		Limiter:      limiter,
		QuizCooldown: cfg.Redis.QuizGenerationCooldown,
	})

	return listen(ctx, cfg.HTTP, srv.Handler(), logger, len(srv.Procedures()))
}

// syncSchema creates whatever tables, columns and indexes the database is missing.
func syncSchema(ctx context.Context, db *runtime.DB, logger *slog.Logger) error {
	tables, err := migration.OrderedTables(apps.Models()...)
	if err != nil {
		return err
	}
	executor := migration.NewExecutor(db.Pool()).WithLogger(logger)
	if err := executor.Initialize(ctx); err != nil {
		return err
	}
	return executor.WithLock(ctx, func(ctx context.Context) error {
		applied, err := executor.Sync(ctx, tables)
		if err != nil {
			return fmt.Errorf("failed to sync schema: %w", err)
		}
		if applied == nil {
			logger.Debug("Schema is up to date")
		}
		return nil
	})
}

func listen(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger, procedures int) error {
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", slog.String("addr", cfg.Addr), slog.Int("procedures", procedures))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}
