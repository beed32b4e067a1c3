package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/goliatone/go-entity-repository/cache"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
)

// Read operations, used as the second segment of cache keys.
const (
	opFind     = "find"
	opFirst    = "first"
	opSearch   = "search"
	opPaginate = "paginate"
	opExists   = "exists"
)

var listOps = []string{opSearch, opFirst, opPaginate}

// Invalidator tracks the cache keys written by reads and drops the ones a
// write makes stale. It is a Listener, so it can be subscribed to any
// Dispatcher.
type Invalidator struct {
	cache    cache.CacheService
	keyer    cache.KeySerializer
	keys     *xsync.MapOf[string, struct{}]
	tags     *xsync.MapOf[string, []string]
	attached *xsync.MapOf[*Dispatcher, struct{}]
	logger   *slog.Logger
}

var _ Listener = (*Invalidator)(nil)

// NewInvalidator returns an invalidator over c. keyer must be the serializer
// the reads use for id keyed entries; nil selects the default one.
func NewInvalidator(c cache.CacheService, keyer cache.KeySerializer, logger *slog.Logger) *Invalidator {
	if keyer == nil {
		keyer = cache.NewDefaultKeySerializer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{
		cache:    c,
		keyer:    keyer,
		keys:     xsync.NewMapOf[string, struct{}](),
		tags:     xsync.NewMapOf[string, []string](),
		attached: xsync.NewMapOf[*Dispatcher, struct{}](),
		logger:   logger,
	}
}

// Attach subscribes i to d unless it already is, and reports whether a
// subscription was added. Handle keys every deletion by the event index, so
// one subscription serves every index published on d.
func (i *Invalidator) Attach(d *Dispatcher) bool {
	if _, loaded := i.attached.LoadOrStore(d, struct{}{}); loaded {
		return false
	}
	d.Subscribe(i)
	return true
}

// Track registers key, plus any tags carried by ctx.
func (i *Invalidator) Track(ctx context.Context, key string) {
	i.keys.Store(key, struct{}{})
	for _, tag := range cacheTagsFromContext(ctx) {
		i.tags.Compute(tag, func(old []string, _ bool) ([]string, bool) {
			if slices.Contains(old, key) {
				return old, false
			}
			return append(slices.Clone(old), key), false
		})
	}
}

// Tracked reports whether key is registered.
func (i *Invalidator) Tracked(key string) bool {
	_, ok := i.keys.Load(key)
	return ok
}

// Handle drops the entries a write on event.Index makes stale: the id keyed
// reads of the written record and every list read of the index.
func (i *Invalidator) Handle(ctx context.Context, event Event) error {
	var err error
	if event.ID != "" {
		err = multierr.Append(err, i.deleteKey(ctx, i.idKey(event.Index, opFind, event.ID)))
		err = multierr.Append(err, i.deleteKey(ctx, i.idKey(event.Index, opExists, event.ID)))
	}
	for _, op := range listOps {
		err = multierr.Append(err, i.invalidateByPrefix(ctx, cache.Key(event.Index, op)+cache.KeySeparator))
	}
	if err != nil {
		i.logger.WarnContext(ctx, "cache invalidation incomplete", "index", event.Index, "event", string(event.Type), "error", err)
	}
	return err
}

// InvalidateTags drops every key registered under the given tags.
func (i *Invalidator) InvalidateTags(ctx context.Context, tags ...string) error {
	var err error
	for _, tag := range tags {
		keys, ok := i.tags.LoadAndDelete(tag)
		if !ok {
			continue
		}
		for _, key := range keys {
			err = multierr.Append(err, i.deleteKey(ctx, key))
		}
	}
	return err
}

// InvalidateIndex drops every cached read of index, tracked or not.
func (i *Invalidator) InvalidateIndex(ctx context.Context, index string) error {
	prefix := index + cache.KeySeparator
	n, err := i.cache.DeleteByPrefix(ctx, prefix)
	i.keys.Range(func(key string, _ struct{}) bool {
		if strings.HasPrefix(key, prefix) {
			i.keys.Delete(key)
		}
		return true
	})
	i.logger.DebugContext(ctx, "cache index invalidated", "index", index, "keys", n)
	return err
}

func (i *Invalidator) idKey(index, op, id string) string {
	return i.keyer.SerializeKey(cache.Key(index, op), id)
}

func (i *Invalidator) invalidateByPrefix(ctx context.Context, prefix string) error {
	var stale []string
	i.keys.Range(func(key string, _ struct{}) bool {
		if strings.HasPrefix(key, prefix) {
			stale = append(stale, key)
		}
		return true
	})

	var err error
	for _, key := range stale {
		err = multierr.Append(err, i.deleteKey(ctx, key))
	}
	return err
}

func (i *Invalidator) deleteKey(ctx context.Context, key string) error {
	i.keys.Delete(key)
	return i.cache.Delete(ctx, key)
}
