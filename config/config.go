package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-entity-repository/cache"
	"github.com/goliatone/go-entity-repository/entity"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Environment variables read by ApplyEnv.
const (
	EnvStoreDriver = "ENTITY_STORE_DRIVER"
	EnvStoreDSN    = "ENTITY_STORE_DSN"
	EnvLogLevel    = "ENTITY_LOG_LEVEL"
	EnvLogFormat   = "ENTITY_LOG_FORMAT"
	EnvCacheTTL    = "ENTITY_CACHE_TTL"
)

// Config is the complete runtime configuration.
type Config struct {
	Store  Store        `yaml:"store"`
	Cache  cache.Config `yaml:"cache"`
	Entity Entity       `yaml:"entity"`
	Log    Log          `yaml:"log"`

	// DisableCache makes services read straight from the store.
	DisableCache bool `yaml:"disable_cache"`
}

// Store selects and configures the document store.
type Store struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	SoftDelete string `yaml:"soft_delete"`
}

// Entity configures hydration and serialization.
type Entity struct {
	DateFormat     string `yaml:"date_format"`
	KeepZeroValues bool   `yaml:"keep_zero_values"`
}

// Log configures the slog logger built by NewLogger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns an in-memory setup with the default cache.
func Default() Config {
	return Config{
		Store: Store{
			Driver:     DriverMemory,
			SoftDelete: "deleted",
		},
		Cache: cache.DefaultConfig(),
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, goerrors.Wrap(err, goerrors.CategoryBadInput, "read config file").
				WithMetadata(map[string]any{"path": path})
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, goerrors.Wrap(err, goerrors.CategoryBadInput, "parse config file").
				WithMetadata(map[string]any{"path": path})
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads variables from .env style files into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "load env file").
				WithMetadata(map[string]any{"path": p})
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the variables lookup reports as set.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvStoreDriver); ok {
		cfg.Store.Driver = v
	}
	if v, ok := lookup(EnvStoreDSN); ok {
		cfg.Store.DSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
	if v, ok := lookup(EnvCacheTTL); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return goerrors.New(fmt.Sprintf("%s: %v", EnvCacheTTL, err), goerrors.CategoryBadInput).
				WithTextCode("INVALID_ENV")
		}
		cfg.Cache.TTL = ttl
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Store),
		validation.Field(&c.Cache),
		validation.Field(&c.Log),
	)
}

// Validate checks the store section. Every driver but memory needs a DSN.
func (s Store) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverMemory, DriverSQLite, DriverPostgres)),
		validation.Field(&s.DSN, validation.When(s.Driver != DriverMemory, validation.Required)),
	)
}

// Validate checks the log section.
func (l Log) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

// HydratorOptions converts the entity section into hydrator options.
func (e Entity) HydratorOptions() []entity.Option {
	var opts []entity.Option
	if e.DateFormat != "" {
		opts = append(opts, entity.WithDateFormat(e.DateFormat))
	}
	if e.KeepZeroValues {
		opts = append(opts, entity.WithKeepZeroValues())
	}
	return opts
}
