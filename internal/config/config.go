// Package config loads pdmtracker settings from a TOML file, .env files and
// PDMTRACKER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"pdmtracker/internal/blob"
	"pdmtracker/internal/core"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "PDMTRACKER"

// FileName is the default config file looked up in the home directory.
const FileName = ".pdmtracker"

// Config is the full runtime configuration.
type Config struct {
	Storage core.StorageConfig `mapstructure:"storage"`
	Blob    blob.Config        `mapstructure:"blob"`
	Archive ArchiveConfig      `mapstructure:"archive"`
	Server  ServerConfig       `mapstructure:"server"`
	Schema  SchemaConfig       `mapstructure:"schema"`
	Log     LogConfig          `mapstructure:"log"`
}

// ArchiveConfig toggles raw workbook archiving in the blob store. LinkExpiry
// bounds presigned download links on drivers that issue them.
type ArchiveConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	LinkExpiry time.Duration `mapstructure:"link_expiry"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// SchemaConfig points at an optional workbook layout descriptor.
type SchemaConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig sets the global log level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"storage.driver":            string(core.StorageSQLite),
	"storage.sqlite_path":       "pdmtracker.db",
	"storage.postgres_dsn":      "",
	"storage.memory_capacity":   0,
	"storage.blob_prefix":       "kv/",
	"blob.driver":               string(blob.DriverFilesystem),
	"blob.fs_root":              "data/blobs",
	"blob.s3.region":            "",
	"blob.s3.bucket":            "",
	"blob.s3.endpoint":          "",
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"blob.s3.session_token":     "",
	"blob.s3.path_style":        false,
	"archive.enabled":           false,
	"archive.link_expiry":       "15m",
	"server.addr":               ":8080",
	"schema.file":               "",
	"log.level":                 "info",
}

// Load reads .env files (".env" when none are given; missing files are
// ignored), then path or $HOME/.pdmtracker.toml, then environment overrides.
// An explicit path must exist.
func Load(path string, envFiles ...string) (Config, error) {
	if err := loadEnv(envFiles); err != nil {
		return Config{}, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigType("toml")
		v.SetConfigName(FileName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(filepath.Clean(f)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate rejects unknown drivers and log levels.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageBlob:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == core.StoragePostgres && c.Storage.PostgresDSN == "" {
		return errors.New("storage.postgres_dsn is required for the postgres driver")
	}
	if c.Storage.MemoryCapacity < 0 {
		return errors.New("storage.memory_capacity must not be negative")
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("blob.driver: unknown driver %q", c.Blob.Driver)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// NeedsBlobStore reports whether any configured component stores objects.
func (c Config) NeedsBlobStore() bool {
	return c.Archive.Enabled || c.Storage.Driver == core.StorageBlob
}

// Level parses the configured log level.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
