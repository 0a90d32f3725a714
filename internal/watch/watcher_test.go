package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkbook(t *testing.T) {
	cases := map[string]bool{
		"plan.xlsx":         true,
		"/tmp/in/PLAN.XLSX": true,
		"plan.xls":          false,
		"notas.txt":         false,
		"~$plan.xlsx":       false,
		".plan.xlsx":        false,
		"carpeta/plan.xlsx": true,
	}
	for name, want := range cases {
		if got := Workbook(name); got != want {
			t.Fatalf("Workbook(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWatcherSubmitsSettledWorkbooks(t *testing.T) {
	dir := t.TempDir()
	submitted := make(chan string, 8)
	w, err := New(dir, func(_ context.Context, path string) error {
		submitted <- path
		if filepath.Base(path) == "roto.xlsx" {
			return errors.New("parse failure")
		}
		return nil
	}, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for _, name := range []string{"notas.txt", "~$plan.xlsx", "roto.xlsx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	expect(t, submitted, filepath.Join(dir, "roto.xlsx"))

	if err := os.WriteFile(filepath.Join(dir, "plan.xlsx"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	expect(t, submitted, filepath.Join(dir, "plan.xlsx"))

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not stop")
	}
	select {
	case extra := <-submitted:
		t.Fatalf("unexpected submission %s", extra)
	default:
	}
}

func expect(t *testing.T, submitted <-chan string, want string) {
	t.Helper()
	select {
	case got := <-submitted:
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func TestNewRejects(t *testing.T) {
	if _, err := New(t.TempDir(), nil); err == nil {
		t.Fatalf("expected error without submit func")
	}
	missing := filepath.Join(t.TempDir(), "absent")
	if _, err := New(missing, func(context.Context, string) error { return nil }); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
