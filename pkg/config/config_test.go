package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/flowkeeper/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowkeeper.toml")
	data := `
[storage]
backend = "redis"
namespace = "team-a"

[storage.redis]
addr = "localhost:6379"
db = 2
ttl = "24h"

[editor]
flush_delay = "250ms"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != BackendRedis || cfg.Storage.Redis.Addr != "localhost:6379" || cfg.Storage.Redis.DB != 2 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Redis.TTL.Duration != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", cfg.Storage.Redis.TTL)
	}
	if cfg.Editor.FlushDelay.Duration != 250*time.Millisecond {
		t.Errorf("flush_delay = %v, want 250ms", cfg.Editor.FlushDelay)
	}
	if cfg.Editor.HintTimeout.Duration != 3*time.Second {
		t.Errorf("hint_timeout default lost: %v", cfg.Editor.HintTimeout)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowkeeper.yaml")
	data := `
storage:
  backend: postgres
  postgres:
    table: flows_kv
server:
  addr: 0.0.0.0:9000
  allowed_origins: ["https://editor.example.com"]
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != BackendPostgres || cfg.Storage.Postgres.Table != "flows_kv" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.ShutdownTimeout.Duration != 10*time.Second {
		t.Errorf("shutdown_timeout default lost: %v", cfg.Server.ShutdownTimeout)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, file, data string
	}{
		{"unknown extension", "cfg.json", `{}`},
		{"bad toml", "cfg.toml", `[storage`},
		{"bad duration", "cfg.yaml", "editor:\n  flush_delay: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			_ = os.WriteFile(path, []byte(tt.data), 0o644)
			_, err := Load(path)
			if !errors.Is(err, errors.ErrCodeConfig) {
				t.Errorf("Load error = %v, want CONFIG_ERROR", err)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "Storage.Backend must be one of"},
		{"redis without addr", func(c *Config) { c.Storage.Backend = BackendRedis }, "Storage.Redis.Addr is required for the redis backend"},
		{"mongo without uri", func(c *Config) { c.Storage.Backend = BackendMongo }, "Storage.Mongo.URI is required for the mongo backend"},
		{"badger without path", func(c *Config) { c.Storage.Backend = BackendBadger; c.Storage.Badger.Path = "" }, "Storage.Badger.Path is required"},
		{"bad server addr", func(c *Config) { c.Server.Addr = "nowhere" }, "Server.Addr failed hostname_port"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Log.Level must be one of"},
		{"namespace with slash", func(c *Config) { c.Storage.Namespace = "a/b" }, "Storage.Namespace failed excludesall"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, errors.ErrCodeConfig) {
				t.Errorf("error code = %v, want CONFIG_ERROR", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}

	in := Default()
	in.Storage.Backend = BackendBadger
	in.Storage.Badger = BadgerConfig{InMemory: true}
	if err := Validate(in); err != nil {
		t.Errorf("in-memory badger needs no path: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"FLOWKEEPER_STORAGE":    "mongo",
		"FLOWKEEPER_MONGO_URI":  "mongodb://db:27017",
		"FLOWKEEPER_ADDR":       ":9999",
		"FLOWKEEPER_LOG_LEVEL":  "warn",
		"FLOWKEEPER_NAMESPACE":  "",
		"FLOWKEEPER_REDIS_ADDR": "",
	}
	cfg := Default()
	cfg.Storage.Namespace = "keep"
	ApplyEnv(&cfg, func(k string) string { return env[k] })

	if cfg.Storage.Backend != BackendMongo || cfg.Storage.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Server.Addr != ":9999" || cfg.Log.Level != "warn" {
		t.Errorf("server/log = %+v %+v", cfg.Server, cfg.Log)
	}
	if cfg.Storage.Namespace != "keep" {
		t.Error("empty variables must not override")
	}
}

func TestDataDirXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/custom-data")
	if got, want := DataDir(), filepath.Join("/tmp/custom-data", AppName); got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")
	if got, want := DefaultPath(), filepath.Join("/tmp/custom-config", AppName, "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
