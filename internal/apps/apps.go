// Package apps wires the five CRUD apps onto one RPC server and lists their
// persisted models for migrations.
package apps

import (
	"log/slog"
	"time"

	"github.com/marshallshelly/pebble-apps/internal/apps/bookmarks"
	"github.com/marshallshelly/pebble-apps/internal/apps/crud"
	"github.com/marshallshelly/pebble-apps/internal/apps/garage"
	"github.com/marshallshelly/pebble-apps/internal/apps/gym"
	"github.com/marshallshelly/pebble-apps/internal/apps/quiz"
	"github.com/marshallshelly/pebble-apps/internal/apps/tennis"
	"github.com/marshallshelly/pebble-apps/internal/ratelimit"
	"github.com/marshallshelly/pebble-apps/internal/rpc"
	"github.com/marshallshelly/pebble-apps/pkg/builder"
)

// Models returns every persisted model of every app.
func Models() []any {
	var models []any
	models = append(models, garage.Models()...)
	models = append(models, gym.Models()...)
	models = append(models, bookmarks.Models()...)
	models = append(models, quiz.Models()...)
	models = append(models, tennis.Models()...)
	return models
}

// Deps are the shared dependencies of the app services.
type Deps struct {
	DB     *builder.DB
	Logger *slog.Logger
	// Clock pins "today" for the date rules. nil uses the wall clock.
	Clock crud.Clock
	// Limiter throttles quiz generation. nil or disconnected allows every call.
	Limiter *ratelimit.Limiter
	// QuizCooldown is the per-client window between two generateQuiz calls.
	QuizCooldown time.Duration
}

// Register exposes the procedures of every app on srv.
func Register(srv *rpc.Server, d Deps) {
	garage.NewService(d.DB, d.Logger, d.Clock).Register(srv)
	gym.NewService(d.DB, d.Logger, d.Clock).Register(srv)
	bookmarks.NewService(d.DB, d.Logger).Register(srv)
	tennis.NewService(d.DB, d.Logger).Register(srv)

	var generate []rpc.Option
	if d.Limiter.Enabled() && d.QuizCooldown > 0 {
		generate = append(generate, rpc.WithRateLimit(d.Limiter, d.QuizCooldown))
	}
	quiz.NewService(d.DB, d.Logger).Register(srv, generate...)
}
