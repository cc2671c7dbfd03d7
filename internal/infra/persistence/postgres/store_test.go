package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"reactivegraph/internal/infra/persistence"
	"reactivegraph/internal/infra/persistence/postgres/testutil"
)

func TestStoreSaveLoadWithStub(t *testing.T) {
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(testutil.Open(db))
	defer restore()

	ctx := context.Background()
	store, err := NewStore(ctx, "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.Driver() != persistence.DriverPostgres || store.DB() != db {
		t.Fatalf("unexpected store identity")
	}
	if len(conn.Execs) == 0 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS state") {
		t.Fatalf("expected state table ddl, got %v", conn.Execs)
	}
	if _, err := store.Load(ctx); !errors.Is(err, persistence.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	id := uuid.New()
	snap := persistence.Snapshot{Entities: []persistence.EntityRecord{{ID: id, Type: "t::x", Properties: []persistence.PropertyRecord{}}}}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if got := len(conn.Tables["state"]); got != len(persistence.Buckets) {
		t.Fatalf("expected upsert to keep %d rows, got %d", len(persistence.Buckets), got)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Entities) != 1 || loaded.Entities[0].ID != id {
		t.Fatalf("unexpected snapshot %+v", loaded)
	}
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(testutil.Open(db))
	if _, err := NewStore(ctx, "postgres://ignored"); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
	restore()

	db, conn = testutil.NewStubDB()
	restore = OverrideSQLOpen(testutil.Open(db))
	defer restore()
	store, err := NewStore(ctx, "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	conn.FailBegin = true
	if err := store.Save(ctx, persistence.Snapshot{}); err == nil || !strings.Contains(err.Error(), "begin") {
		t.Fatalf("expected begin error, got %v", err)
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if err := store.Save(ctx, persistence.Snapshot{}); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit error, got %v", err)
	}
	conn.FailCommit = false
	conn.FailExec = true
	if err := store.Save(ctx, persistence.Snapshot{}); err == nil || !strings.Contains(err.Error(), "upsert meta") {
		t.Fatalf("expected upsert error, got %v", err)
	}
	conn.FailExec = false
	conn.RowsErr = errors.New("rows boom")
	if _, err := store.Load(ctx); err == nil || !strings.Contains(err.Error(), "iterate") {
		t.Fatalf("expected iterate error, got %v", err)
	}

	restoreErr := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("open boom") })
	defer restoreErr()
	if _, err := NewStore(ctx, ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}
