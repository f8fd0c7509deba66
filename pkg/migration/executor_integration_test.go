//go:build integration

package migration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marshallshelly/pebble-apps/internal/testdb"
	"github.com/marshallshelly/pebble-apps/pkg/migration"
	"github.com/marshallshelly/pebble-apps/pkg/runtime"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

type member struct {
	ID        int64     `po:"id,primaryKey,bigserial"`
	Email     string    `po:"email,varchar(255),notNull,unique"`
	Plan      string    `po:"plan,text,notNull,default('basic'),enum(basic|premium|vip)"`
	CreatedAt time.Time `po:"created_at,timestamptz,notNull,default(now())"`
}

func (member) TableName() string { return "members" }

type booking struct {
	ID         int64  `po:"id,primaryKey,bigserial"`
	MemberID   int64  `po:"member_id,bigint,notNull,fk:members(id),onDelete:cascade,index"`
	ScheduleID int64  `po:"schedule_id,bigint,notNull"`
	Status     string `po:"status,text,notNull,enum(booked|cancelled)"`
}

func (booking) TableName() string { return "bookings" }

func (booking) TableIndexes() []schema.IndexMetadata {
	return []schema.IndexMetadata{{
		Name:    "uq_bookings_active",
		Columns: []string{"member_id", "schedule_id"},
		Unique:  true,
		Where:   "status = 'booked'",
	}}
}

func TestExecutorApplyAndRollback(t *testing.T) {
	db := testdb.Start(t)
	ctx := context.Background()
	executor := migration.NewExecutor(db.Pool())

	if err := executor.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	m, err := migration.FromModels("create_gym", member{}, booking{})
	if err != nil {
		t.Fatal(err)
	}
	broken := migration.Migration{Version: "29990101000000", Name: "broken", UpSQL: "CREATE TABLE nope (id int REFERENCES missing(id));"}

	err = executor.WithLock(ctx, func(ctx context.Context) error {
		n, err := executor.ApplyAll(ctx, []migration.Migration{*m}, false)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("expected 1 applied migration, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	// The partial unique index from TableIndexes is live.
	if _, err := db.Pool().Exec(ctx, `INSERT INTO members (email) VALUES ('a@b.c')`); err != nil {
		t.Fatal(err)
	}
	insert := `INSERT INTO bookings (member_id, schedule_id, status) VALUES (1, 1, $1)`
	if _, err := db.Pool().Exec(ctx, insert, "booked"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(ctx, insert, "booked"); !errors.Is(err, runtime.ErrDuplicateKey) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
	if _, err := db.Pool().Exec(ctx, insert, "cancelled"); err != nil {
		t.Errorf("cancelled rows are outside the partial index: %v", err)
	}

	if err := executor.Apply(ctx, broken, false); err == nil {
		t.Fatal("expected broken migration to fail")
	}

	status, err := executor.GetStatus(ctx, []migration.Migration{*m, broken})
	if err != nil {
		t.Fatal(err)
	}
	if status[0].Status != migration.StatusApplied || status[1].Status != migration.StatusFailed || status[1].Error == nil {
		t.Errorf("unexpected status: %+v", status)
	}

	if n, err := executor.RollbackTo(ctx, "0", []migration.Migration{*m}, false); err != nil || n != 1 {
		t.Fatalf("RollbackTo: n=%d err=%v", n, err)
	}
	current, err := migration.NewIntrospector(db.Pool()).IntrospectSchema(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(current) != 0 {
		t.Errorf("expected all tables dropped, got %v", current)
	}
}

func TestExecutorSync(t *testing.T) {
	db := testdb.Start(t)
	ctx := context.Background()
	executor := migration.NewExecutor(db.Pool())
	if err := executor.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Pool().Exec(ctx, `CREATE TABLE members (id bigserial PRIMARY KEY, email varchar(255) NOT NULL UNIQUE)`); err != nil {
		t.Fatal(err)
	}

	tables, err := migration.OrderedTables(member{}, booking{})
	if err != nil {
		t.Fatal(err)
	}

	applied, err := executor.Sync(ctx, tables)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if applied == nil {
		t.Fatal("expected a migration to be applied")
	}

	current, err := migration.NewIntrospector(db.Pool()).IntrospectSchema(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !current["members"].HasColumn("plan") || !current["members"].HasColumn("created_at") {
		t.Errorf("expected missing member columns to be added: %+v", current["members"].Columns)
	}
	if _, ok := current["bookings"]; !ok {
		t.Error("expected bookings to be created")
	}

	again, err := executor.Sync(ctx, tables)
	if err != nil || again != nil {
		t.Errorf("expected second sync to be a no-op, got %v, %v", again, err)
	}
}
