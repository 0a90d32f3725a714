package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"pdmtracker/internal/blob"
	"pdmtracker/internal/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{
		Storage: core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: "pdmtracker.db", BlobPrefix: "kv/"},
		Blob:    blob.Config{Driver: blob.DriverFilesystem, FSRoot: "data/blobs"},
		Archive: ArchiveConfig{LinkExpiry: 15 * time.Minute},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.NeedsBlobStore() {
		t.Fatalf("defaults need no blob store")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "pdm.toml", `
[storage]
driver = "memory"
memory_capacity = 4096

[blob]
driver = "s3"

[blob.s3]
bucket = "planes"
path_style = true

[archive]
enabled = true
link_expiry = "2h"

[log]
level = "DEBUG"
`)
	t.Setenv("PDMTRACKER_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("PDMTRACKER_BLOB_S3_REGION", "sa-east-1")

	cfg, err := Load(path, filepath.Join(dir, "none.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != core.StorageMemory || cfg.Storage.MemoryCapacity != 4096 {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	wantS3 := blob.S3Config{Bucket: "planes", Region: "sa-east-1", PathStyle: true}
	if diff := cmp.Diff(wantS3, cfg.Blob.S3); diff != "" {
		t.Fatalf("s3 mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || !cfg.Archive.Enabled || !cfg.NeedsBlobStore() {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Archive.LinkExpiry != 2*time.Hour {
		t.Fatalf("link expiry = %v, want 2h", cfg.Archive.LinkExpiry)
	}
	if level, err := cfg.Level(); err != nil || level != zerolog.DebugLevel {
		t.Fatalf("unexpected level %v %v", level, err)
	}
}

func TestLoadHomeFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, home, FileName+".toml", "[server]\naddr = \":7070\"\n")
	cfg, err := Load("", filepath.Join(home, "none.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("expected home config, got %q", cfg.Server.Addr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	const key = "PDMTRACKER_SCHEMA_FILE"
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset: %v", err)
	}
	env := writeFile(t, t.TempDir(), ".env", key+"=/etc/pdm/schema.json\n")
	cfg, err := Load("", env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Schema.File != "/etc/pdm/schema.json" {
		t.Fatalf("expected .env value, got %q", cfg.Schema.File)
	}
}

func TestLoadRejects(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	noEnv := filepath.Join(dir, "none.env")
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "storage driver", body: "[storage]\ndriver = \"redis\"\n", want: "storage.driver"},
		{name: "postgres without dsn", body: "[storage]\ndriver = \"postgres\"\n", want: "postgres_dsn"},
		{name: "blob driver", body: "[blob]\ndriver = \"gcs\"\n", want: "blob.driver"},
		{name: "log level", body: "[log]\nlevel = \"loud\"\n", want: "log.level"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tc.name, " ", "_")+".toml", tc.body)
			_, err := Load(path, noEnv)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
	if _, err := Load(filepath.Join(dir, "absent.toml"), noEnv); err == nil {
		t.Fatalf("expected missing explicit config to fail")
	}
}
