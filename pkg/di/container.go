package di

import (
	"context"
	"io"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-entity-repository/cache"
	"github.com/goliatone/go-entity-repository/config"
	"github.com/goliatone/go-entity-repository/entity"
	"github.com/goliatone/go-entity-repository/query"
	"github.com/goliatone/go-entity-repository/repository"
	"github.com/goliatone/go-entity-repository/service"
	"github.com/goliatone/go-entity-repository/storage/memory"
	"github.com/goliatone/go-entity-repository/storage/sqlstore"
)

// Container holds the shared components built from a config.Config: the
// logger, the store, the entity factory and validator registry, and the
// cache with its key serializer, dispatcher and invalidator. Repositories
// and services are created from it with NewRepository and NewService.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	store         query.Store
	closer        io.Closer
	factory       *entity.DefaultFactory
	registry      *entity.Registry
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	dispatcher    *service.Dispatcher
	invalidator   *service.Invalidator
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger replaces the logger built from the log section.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithStore uses s instead of opening the configured driver.
func WithStore(s query.Store) Option {
	return func(c *Container) { c.store = s }
}

// WithCacheService replaces the sturdyc cache.
func WithCacheService(s cache.CacheService) Option {
	return func(c *Container) { c.cacheService = s }
}

// NewContainer validates cfg and builds the components. SQL stores are
// opened and migrated with ctx.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		keySerializer: cache.NewDefaultKeySerializer(),
		registry:      entity.NewRegistry(),
		dispatcher:    service.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = config.NewLogger(cfg.Log, nil)
	}

	c.factory = entity.NewFactory(append(cfg.Entity.HydratorOptions(), entity.WithLogger(c.logger))...)

	if c.store == nil {
		if err := c.openStore(ctx); err != nil {
			return nil, err
		}
	}

	if !cfg.DisableCache {
		if c.cacheService == nil {
			svc, err := cache.NewCacheService(cfg.Cache, c.logger)
			if err != nil {
				_ = c.Close()
				return nil, err
			}
			c.cacheService = svc
		}
		c.invalidator = service.NewInvalidator(c.cacheService, c.keySerializer, c.logger)
	} else {
		c.cacheService = nil
	}

	c.logger.DebugContext(ctx, "container ready", "driver", cfg.Store.Driver, "cache", !cfg.DisableCache)
	return c, nil
}

// NewContainerWithDefaults builds a container over the in-memory store.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(context.Background(), config.Default())
}

func (c *Container) openStore(ctx context.Context) error {
	sc := c.config.Store
	switch sc.Driver {
	case config.DriverMemory:
		c.store = memory.New(
			memory.WithSoftDelete(sc.SoftDelete),
			memory.WithLogger(c.logger),
		)
		return nil
	case config.DriverSQLite, config.DriverPostgres:
		s, err := sqlstore.Open(sc.Driver, sc.DSN,
			sqlstore.WithSoftDelete(sc.SoftDelete),
			sqlstore.WithLogger(c.logger),
		)
		if err != nil {
			return err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return err
		}
		c.store, c.closer = s, s
		return nil
	default:
		return goerrors.New("unsupported store driver "+sc.Driver, goerrors.CategoryBadInput).
			WithTextCode("UNSUPPORTED_DRIVER")
	}
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config { return c.config }

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Store returns the document store.
func (c *Container) Store() query.Store { return c.store }

// Factory returns the shared entity factory.
func (c *Container) Factory() *entity.DefaultFactory { return c.factory }

// Registry returns the shared validator registry.
func (c *Container) Registry() *entity.Registry { return c.registry }

// CacheService returns the cache, nil when caching is disabled.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the key serializer for id keyed entries.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Dispatcher returns the dispatcher shared by every service.
func (c *Container) Dispatcher() *service.Dispatcher { return c.dispatcher }

// Invalidator returns the shared invalidator, nil when caching is disabled.
func (c *Container) Invalidator() *service.Invalidator { return c.invalidator }

// Close releases the store connection, if any.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// NewRepository creates a repository for T wired to the container's store,
// factory, registry and soft delete field. opts are applied last.
//
// Since Go methods cannot have type parameters, this is a package-level
// function: NewRepository[*User](container).
func NewRepository[T entity.Record](c *Container, opts ...repository.Option) *repository.Repository[T] {
	base := []repository.Option{
		repository.WithFactory(c.factory),
		repository.WithRegistry(c.registry),
		repository.WithSoftDeleteField(c.config.Store.SoftDelete),
		repository.WithLogger(c.logger),
	}
	return repository.New[T](c.store, append(base, opts...)...)
}

// NewService creates a cached service for T. All services of one container
// share the dispatcher, so listeners see writes from every index. The shared
// invalidator is subscribed once, however many services are created.
func NewService[T entity.Record](c *Container, opts ...repository.Option) *service.Service[T] {
	svcOpts := []service.Option{
		service.WithDispatcher(c.dispatcher),
		service.WithLogger(c.logger),
	}
	if c.cacheService != nil {
		svcOpts = append(svcOpts,
			service.WithCache(c.cacheService),
			service.WithKeySerializer(c.keySerializer),
			service.WithInvalidator(c.invalidator),
		)
	}
	return service.New(NewRepository[T](c, opts...), svcOpts...)
}
