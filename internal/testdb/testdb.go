//go:build integration

// Package testdb starts throwaway PostgreSQL and Redis containers for integration tests.
package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/marshallshelly/pebble-apps/pkg/migration"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Start runs a PostgreSQL container for the duration of the test and returns a
// connected DB. The container is terminated through t.Cleanup.
func Start(t *testing.T) *runtime.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := runtime.ConnectWithURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// StartWithModels is Start plus the schema of models, created through the migration planner.
func StartWithModels(t *testing.T, models ...any) *runtime.DB {
	t.Helper()
	db := Start(t)

	m, err := migration.FromModels("test_schema", models...)
	if err != nil {
		t.Fatalf("Failed to plan schema: %v", err)
	}
	if _, err := db.Pool().Exec(context.Background(), m.UpSQL); err != nil {
		t.Fatalf("Failed to create schema: %v\n%s", err, m.UpSQL)
	}
	return db
}
