package service

import (
	"context"
	"slices"
)

type cacheTagsContextKey struct{}

// WithCacheTags attaches tags to ctx. Reads performed with the returned
// context register their cache keys under the tags, and
// Invalidator.InvalidateTags drops them later.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}
	combined := append(cacheTagsFromContext(ctx), tags...)
	slices.Sort(combined)
	combined = slices.Compact(combined)
	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return slices.Clone(tags)
	}
	return nil
}
