package testutil

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	for _, key := range []string{"a", "b"} {
		_, err := conn.ExecContext(ctx, "INSERT INTO kv(key, value) VALUES($1, $2) ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value", []driver.NamedValue{
			{Value: key},
			{Value: "v-" + key},
		})
		if err != nil {
			t.Fatalf("ExecContext insert: %v", err)
		}
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO kv(key, value) VALUES($1, $2) ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value", []driver.NamedValue{
		{Value: "a"},
		{Value: "v-a2"},
	}); err != nil {
		t.Fatalf("ExecContext upsert: %v", err)
	}
	if len(conn.Tables["kv"]) != 2 {
		t.Fatalf("expected 2 kv rows, got %v", conn.Tables["kv"])
	}

	rows, err := conn.QueryContext(ctx, "SELECT value FROM kv WHERE key = $1", []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "v-a2" {
		t.Fatalf("unexpected row value: %v", dest)
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM kv WHERE key = $1", []driver.NamedValue{{Value: "a"}}); err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	if len(conn.Tables["kv"]) != 1 {
		t.Fatalf("expected delete to drop one row, got %v", conn.Tables["kv"])
	}
}

func TestStubExecErr(t *testing.T) {
	_, conn := NewStubDB()
	conn.ExecErr = errors.New("full")
	_, err := conn.ExecContext(context.Background(), "INSERT INTO kv(key, value) VALUES($1, $2)", []driver.NamedValue{{Value: "k"}, {Value: "v"}})
	if err == nil || err.Error() != "full" {
		t.Fatalf("expected configured error, got %v", err)
	}
}
