// Package cache provides the read-through cache used by the service layer.
//
// CacheService is implemented by a sturdyc client (see NewCacheService).
// Values are usually msgpack snapshots produced by Snapshot, so every reader
// restores its own copy with Restore:
//
//	key := cache.ParamsKey("users", "search", params)
//	data, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]byte, error) {
//		users, err := repo.Search(ctx, params)
//		if err != nil {
//			return nil, err
//		}
//		return cache.Snapshot(users)
//	})
//
// # Keys
//
// Keys are segments joined by KeySeparator and always start with the index
// name, so a write can drop every cached read of an index with
// DeleteByPrefix. ParamsKey digests ordered query parameters with xxhash;
// the KeySerializer renders arbitrary arguments and falls back to a digest
// of the msgpack encoding for values it cannot print.
package cache
