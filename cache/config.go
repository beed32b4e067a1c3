package cache

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-entity-repository/internal/cacheinfra"
)

// Config configures the default cache service.
type Config struct {
	Capacity             int                 `yaml:"capacity"`
	NumShards            int                 `yaml:"num_shards"`
	TTL                  time.Duration       `yaml:"ttl"`
	EvictionPercentage   int                 `yaml:"eviction_percentage"`
	EarlyRefresh         *EarlyRefreshConfig `yaml:"early_refresh"`
	MissingRecordStorage bool                `yaml:"missing_record_storage"`
	EvictionInterval     time.Duration       `yaml:"eviction_interval"`
}

// EarlyRefreshConfig configures background refreshes of hot keys.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `yaml:"min_async_refresh_time"`
	MaxAsyncRefreshTime time.Duration `yaml:"max_async_refresh_time"`
	SyncRefreshTime     time.Duration `yaml:"sync_refresh_time"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
}

// DefaultConfig returns the default cache settings.
func DefaultConfig() Config {
	in := cacheinfra.DefaultConfig()
	cfg := Config{
		Capacity:             in.Capacity,
		NumShards:            in.NumShards,
		TTL:                  in.TTL,
		EvictionPercentage:   in.EvictionPercentage,
		MissingRecordStorage: in.MissingRecordStorage,
		EvictionInterval:     in.EvictionInterval,
	}
	if e := in.EarlyRefresh; e != nil {
		cfg.EarlyRefresh = &EarlyRefreshConfig{
			MinAsyncRefreshTime: e.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: e.MaxAsyncRefreshTime,
			SyncRefreshTime:     e.SyncRefreshTime,
			RetryBaseDelay:      e.RetryBaseDelay,
		}
	}
	return cfg
}

// Validate checks the settings.
func (c Config) Validate() error {
	return c.internal().Validate()
}

// NewCacheService builds the sturdyc backed cache service.
func NewCacheService(cfg Config, logger *slog.Logger) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg.internal(), logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c Config) internal() cacheinfra.Config {
	out := cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
	if e := c.EarlyRefresh; e != nil {
		out.EarlyRefresh = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: e.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: e.MaxAsyncRefreshTime,
			SyncRefreshTime:     e.SyncRefreshTime,
			RetryBaseDelay:      e.RetryBaseDelay,
		}
	}
	return out
}
