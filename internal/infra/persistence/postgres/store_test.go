package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"pdmtracker/internal/infra/persistence/postgres/testutil"
	"pdmtracker/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restoreOpen := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	prevMigrate := applyMigrations
	applyMigrations = func(context.Context, *sql.DB) error { return nil }
	t.Cleanup(func() {
		restoreOpen()
		applyMigrations = prevMigrate
	})
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, conn
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)
	if err := store.Set(ctx, "pdm_data_cache", []byte(`{"version":"1.0.0"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "pdm_data_cache", []byte(`{"version":"1.0.1"}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if len(conn.Tables["kv"]) != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", len(conn.Tables["kv"]))
	}
	got, err := store.Get(ctx, "pdm_data_cache")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"version":"1.0.1"}` {
		t.Fatalf("unexpected value %s", got)
	}
	if err := store.Remove(ctx, "pdm_data_cache"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Get(ctx, "pdm_data_cache"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreMapsCapacityErrors(t *testing.T) {
	store, conn := newStubStore(t)
	conn.ExecErr = &pgconn.PgError{Code: codeDiskFull, Message: "could not extend file"}
	err := store.Set(context.Background(), "k", []byte("v"))
	if !errors.Is(err, domain.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	conn.ExecErr = &pgconn.PgError{Code: "23505", Message: "duplicate"}
	err = store.Set(context.Background(), "k", []byte("v"))
	if err == nil || errors.Is(err, domain.ErrCapacity) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestStoreBeginAndCommitFailures(t *testing.T) {
	store, conn := newStubStore(t)
	conn.FailBegin = true
	if err := store.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if err := store.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Fatalf("expected commit failure")
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://stub"); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestNewStoreMigrationFailure(t *testing.T) {
	db, _ := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	prev := applyMigrations
	applyMigrations = func(context.Context, *sql.DB) error { return errors.New("migrate") }
	defer func() { applyMigrations = prev }()
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected migration failure")
	}
}
