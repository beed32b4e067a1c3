package repository

import (
	"log/slog"

	"github.com/goliatone/go-entity-repository/entity"
)

// DefaultSoftDeleteField is the boolean field Find uses to skip logically
// deleted documents.
const DefaultSoftDeleteField = "deleted"

type options struct {
	factory    entity.Factory
	hydrator   *entity.Hydrator
	registry   *entity.Registry
	index      string
	softDelete string
	logger     *slog.Logger
}

// Option configures a Repository.
type Option func(*options)

// WithFactory sets the factory used to build records from stored documents.
func WithFactory(f entity.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithHydrator sets the hydrator used to serialize records before writes.
func WithHydrator(h *entity.Hydrator) Option {
	return func(o *options) { o.hydrator = h }
}

// WithRegistry sets the external validator registry consulted on writes.
func WithRegistry(r *entity.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithIndex overrides the index derived from the record type name.
func WithIndex(index string) Option {
	return func(o *options) { o.index = index }
}

// WithSoftDeleteField changes the soft delete flag checked by Find. An empty
// field disables the check.
func WithSoftDeleteField(field string) Option {
	return func(o *options) { o.softDelete = field }
}

// WithLogger sets the logger used for store round trips.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
