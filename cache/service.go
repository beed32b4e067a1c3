package cache

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// FetchFn loads a value from the source of truth on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is the read-through cache used by the service layer.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// GetOrFetch is the typed form of CacheService.GetOrFetch. A cached nil is
// returned as the zero T; a cached value of another type is an error.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetch FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, goerrors.New(fmt.Sprintf("cache: key %q holds %T, want %T", key, result, zero), goerrors.CategoryInternal).
			WithTextCode(TextCodeInvalidResultType)
	}
	return typed, nil
}

// TextCodeInvalidResultType tags errors for cached values of an unexpected type.
const TextCodeInvalidResultType = "CACHE_INVALID_RESULT_TYPE"
