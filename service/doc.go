// Package service layers caching and write events over a repository.
//
// Reads go through a cache.CacheService as msgpack snapshots, so every
// caller gets its own copy. Keys take the form index::operation::suffix,
// where the suffix is the record id or a digest of the query parameters.
// Every successful write publishes an Event on a Dispatcher; the service's
// Invalidator listens for events on its index and drops the affected keys.
//
//	svc := service.New(repository.New[*User](store), service.WithCache(c))
//	u, err := svc.FindOrFail(ctx, id)
package service
