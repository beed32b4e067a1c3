package cacheinfra

import (
	"context"
	"log/slog"
	"strings"

	"github.com/viccon/sturdyc"
)

// ErrNotFound marks a fetch result as a missing record. With
// MissingRecordStorage enabled the miss itself is cached.
var ErrNotFound = sturdyc.ErrNotFound

// SturdycService is a read-through cache over a sturdyc client.
type SturdycService struct {
	client *sturdyc.Client[any]
	logger *slog.Logger
}

// NewSturdycService validates cfg and builds the client.
func NewSturdycService(cfg Config, logger *slog.Logger) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)
	return &SturdycService{client: client, logger: logger}, nil
}

// nilValue stands in for a nil fetch result. sturdyc cannot type assert a nil
// any and would report ErrInvalidType instead of the fetch error.
type nilValue struct{}

// GetOrFetch returns the cached value for key, calling fetch on a miss.
// Concurrent misses on one key share a single fetch.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	value, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		s.logger.DebugContext(ctx, "cache miss", "key", key)
		v, err := fetch(ctx)
		if v == nil {
			return nilValue{}, err
		}
		return v, err
	})
	if _, ok := value.(nilValue); ok {
		value = nil
	}
	return value, err
}

// Delete drops one key.
func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix drops every key starting with prefix and returns how many
// were removed.
func (s *SturdycService) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	n := 0
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
			n++
		}
	}
	s.logger.DebugContext(ctx, "cache prefix invalidated", "prefix", prefix, "keys", n)
	return n, nil
}

// Len returns the number of cached entries.
func (s *SturdycService) Len() int {
	return s.client.Size()
}
