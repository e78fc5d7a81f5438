// Package config loads flowkeeper configuration from TOML or YAML files.
//
// A configuration file is optional. [Default] returns a working setup that
// stores projects as files under the XDG data directory; a file only needs
// to name what it changes:
//
//	[storage]
//	backend = "redis"
//
//	[storage.redis]
//	addr = "localhost:6379"
//
// Environment variables override the file (see [ApplyEnv]), and [Validate]
// rejects incomplete backend settings before anything is opened.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flowkeeper/pkg/errors"
)

// AppName names the XDG directories.
const AppName = "flowkeeper"

// Storage backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendNull     = "null"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Backends lists every storage backend name.
var Backends = []string{
	BackendFile, BackendMemory, BackendNull, BackendBadger,
	BackendRedis, BackendMongo, BackendPostgres,
}

// Duration is a time.Duration written as a string such as "500ms".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full configuration.
type Config struct {
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Editor  EditorConfig  `toml:"editor" yaml:"editor"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Log     LogConfig     `toml:"log" yaml:"log"`
}

// StorageConfig selects and configures the key/value backend.
type StorageConfig struct {
	Backend string `toml:"backend" yaml:"backend" validate:"required,oneof=file memory null badger redis mongo postgres"`

	// Namespace prefixes every key, separating tenants on a shared backend.
	Namespace string `toml:"namespace" yaml:"namespace" validate:"omitempty,max=64,excludesall=/"`

	// SaveLayout also writes the detached editor layout record.
	SaveLayout bool `toml:"save_layout" yaml:"save_layout"`

	File     FileConfig     `toml:"file" yaml:"file"`
	Badger   BadgerConfig   `toml:"badger" yaml:"badger"`
	Redis    RedisConfig    `toml:"redis" yaml:"redis"`
	Mongo    MongoConfig    `toml:"mongo" yaml:"mongo"`
	Postgres PostgresConfig `toml:"postgres" yaml:"postgres"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
}

// BadgerConfig configures the embedded BadgerDB backend.
type BadgerConfig struct {
	Path       string `toml:"path" yaml:"path"`
	InMemory   bool   `toml:"in_memory" yaml:"in_memory"`
	SyncWrites bool   `toml:"sync_writes" yaml:"sync_writes"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string   `toml:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	Password string   `toml:"password" yaml:"password"`
	DB       int      `toml:"db" yaml:"db" validate:"gte=0,lte=15"`
	TTL      Duration `toml:"ttl" yaml:"ttl"`
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI        string `toml:"uri" yaml:"uri" validate:"omitempty,uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// PostgresConfig configures the PostgreSQL backend. An empty DSN is built
// from the PG* environment variables.
type PostgresConfig struct {
	DSN   string `toml:"dsn" yaml:"dsn"`
	Table string `toml:"table" yaml:"table" validate:"omitempty,max=63"`
}

// EditorConfig holds session timings.
type EditorConfig struct {
	FlushDelay  Duration `toml:"flush_delay" yaml:"flush_delay"`
	HintTimeout Duration `toml:"hint_timeout" yaml:"hint_timeout"`
}

// ServerConfig configures `flowkeeper serve`.
type ServerConfig struct {
	Addr            string   `toml:"addr" yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	// AllowedOrigins limits websocket upgrades. Empty allows same-origin only.
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			File:    FileConfig{Dir: DataDir()},
			Badger:  BadgerConfig{Path: filepath.Join(DataDir(), "badger"), SyncWrites: true},
		},
		Editor: EditorConfig{
			FlushDelay:  Duration{500 * time.Millisecond},
			HintTimeout: Duration{3 * time.Second},
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8740",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Log: LogConfig{Level: "info"},
	}
}

// DataDir returns the XDG data directory (~/.local/share/flowkeeper/).
func DataDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// DefaultPath returns the XDG config file path (~/.config/flowkeeper/config.toml).
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, "config.toml")
}

// Load reads path on top of [Default]. The format follows the extension:
// .toml, or .yaml/.yml.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeConfig, err, "read config %s", path)
	}
	if err := Decode(data, filepath.Ext(path), &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeConfig, err, "parse config %s", path)
	}
	return cfg, nil
}

// Decode parses data in the format named by ext into cfg, keeping fields
// the data does not set.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case "yaml", "yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}
}

// LoadDefault loads the file named by FLOWKEEPER_CONFIG, else the XDG config
// file when it exists, else [Default]. Environment overrides are applied and
// the result is validated.
func LoadDefault() (Config, error) {
	path := os.Getenv("FLOWKEEPER_CONFIG")
	if path == "" {
		if p := DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, err
		}
	}
	ApplyEnv(&cfg, os.Getenv)
	return cfg, Validate(cfg)
}

// ApplyEnv overrides cfg from environment variables read through getenv:
//
//	FLOWKEEPER_STORAGE        storage.backend
//	FLOWKEEPER_NAMESPACE      storage.namespace
//	FLOWKEEPER_DATA_DIR       storage.file.dir
//	FLOWKEEPER_REDIS_ADDR     storage.redis.addr
//	FLOWKEEPER_MONGO_URI      storage.mongo.uri
//	FLOWKEEPER_POSTGRES_DSN   storage.postgres.dsn
//	FLOWKEEPER_ADDR           server.addr
//	FLOWKEEPER_LOG_LEVEL      log.level
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set("FLOWKEEPER_STORAGE", &cfg.Storage.Backend)
	set("FLOWKEEPER_NAMESPACE", &cfg.Storage.Namespace)
	set("FLOWKEEPER_DATA_DIR", &cfg.Storage.File.Dir)
	set("FLOWKEEPER_REDIS_ADDR", &cfg.Storage.Redis.Addr)
	set("FLOWKEEPER_MONGO_URI", &cfg.Storage.Mongo.URI)
	set("FLOWKEEPER_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	set("FLOWKEEPER_ADDR", &cfg.Server.Addr)
	set("FLOWKEEPER_LOG_LEVEL", &cfg.Log.Level)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateStorage, StorageConfig{})
	return v
}

// validateStorage requires the connection settings of the selected backend.
func validateStorage(sl validator.StructLevel) {
	s := sl.Current().Interface().(StorageConfig)
	switch s.Backend {
	case BackendFile:
		if s.File.Dir == "" {
			sl.ReportError(s.File.Dir, "File.Dir", "Dir", "required_for_backend", s.Backend)
		}
	case BackendBadger:
		if !s.Badger.InMemory && s.Badger.Path == "" {
			sl.ReportError(s.Badger.Path, "Badger.Path", "Path", "required_for_backend", s.Backend)
		}
	case BackendRedis:
		if s.Redis.Addr == "" {
			sl.ReportError(s.Redis.Addr, "Redis.Addr", "Addr", "required_for_backend", s.Backend)
		}
	case BackendMongo:
		if s.Mongo.URI == "" {
			sl.ReportError(s.Mongo.URI, "Mongo.URI", "URI", "required_for_backend", s.Backend)
		}
	}
}

// Validate checks cfg and reports every problem in one CONFIG_ERROR.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeConfig, err, "validate config")
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = describe(fe)
	}
	return errors.New(errors.ErrCodeConfig, "invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_for_backend":
		return fmt.Sprintf("%s is required for the %s backend", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
