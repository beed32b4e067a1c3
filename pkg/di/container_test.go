package di

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-entity-repository/config"
	"github.com/goliatone/go-entity-repository/storage/memory"
)

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if _, ok := container.Store().(*memory.Store); !ok {
		t.Errorf("expected memory store, got %T", container.Store())
	}
	if container.CacheService() == nil {
		t.Error("container should have a cache service")
	}
	if container.KeySerializer() == nil {
		t.Error("container should have a key serializer")
	}
	if container.Invalidator() == nil {
		t.Error("container should have an invalidator")
	}
	if container.Factory() == nil || container.Registry() == nil {
		t.Error("container should have a factory and a registry")
	}

	got := container.Config().Cache
	want := config.Default().Cache
	if got.Capacity != want.Capacity {
		t.Errorf("expected default capacity %d, got %d", want.Capacity, got.Capacity)
	}
	if got.TTL != want.TTL {
		t.Errorf("expected default TTL %v, got %v", want.TTL, got.TTL)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero capacity", func(c *config.Config) { c.Cache.Capacity = 0 }},
		{"negative ttl", func(c *config.Config) { c.Cache.TTL = -time.Second }},
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "mongo" }},
		{"missing dsn", func(c *config.Config) { c.Store.Driver = config.DriverPostgres }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if _, err := NewContainer(context.Background(), cfg); err == nil {
				t.Fatal("expected an error for invalid config")
			}
		})
	}
}

func TestNewContainer_DisableCache(t *testing.T) {
	cfg := config.Default()
	cfg.DisableCache = true

	container, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if container.CacheService() != nil {
		t.Error("cache service should be nil when disabled")
	}

	svc := NewService[*User](container)
	if svc.Invalidator() != nil {
		t.Error("service should not invalidate without a cache")
	}
}

func TestNewContainer_WithStore(t *testing.T) {
	store := memory.New()
	container, err := NewContainer(context.Background(), config.Default(), WithStore(store))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if container.Store() != store {
		t.Error("container should use the injected store")
	}
}

func TestNewRepository_UsesContainerDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Store.SoftDelete = "archived"

	container, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	repo := NewRepository[*User](container)
	if repo.Index() != "users" {
		t.Errorf("expected index users, got %q", repo.Index())
	}
	if repo.Hydrator() != container.Factory().Hydrator() {
		t.Error("repository should use the container's hydrator")
	}

	container.Store().(*memory.Store).Seed("users",
		map[string]any{"id": "u1", "name": "Ada", "archived": true},
	)
	rec, err := repo.Find(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if rec != nil {
		t.Errorf("archived record should be hidden, got %+v", rec)
	}
}

func TestNewService_SubscribesInvalidatorOnce(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	for i := 0; i < 3; i++ {
		NewService[*User](container)
	}
	NewService[*Book](container)

	if n := container.Dispatcher().Len(); n != 1 {
		t.Errorf("expected one invalidation listener, got %d", n)
	}
}
