package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-entity-repository/query"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrDuplicateKey is the error string reported when an insert reuses an id.
const ErrDuplicateKey = "duplicate key"

// Store keeps documents as JSON rows of a single table and implements
// query.Store on top of bun.
type Store struct {
	db         *bun.DB
	docs       repository.Repository[*document]
	driver     string
	postgres   bool
	softDelete string
	newID      func() string
	logger     *slog.Logger
}

var _ query.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithSoftDelete makes Delete flag documents by setting field to true.
func WithSoftDelete(field string) Option {
	return func(s *Store) { s.softDelete = field }
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the logger used for write tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open connects to a database with the given driver and dsn.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	var db *bun.DB
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, repository.CategoryDatabaseConnection, "sqlstore: open sqlite")
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres, "pg", "postgresql":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, repository.CategoryDatabaseConnection, "sqlstore: open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, goerrors.New(fmt.Sprintf("sqlstore: unsupported driver %q", driver), goerrors.CategoryBadInput).
			WithTextCode("UNSUPPORTED_DRIVER")
	}
	return New(db, opts...), nil
}

// New wraps an existing bun database.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		docs:     repository.NewRepository[*document](db, documentHandlers()),
		driver:   repository.DetectDriver(db),
		postgres: db.Dialect().Name() == dialect.PG,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying bun database.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the documents table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*document)(nil)).IfNotExists().Exec(ctx)
	return s.mapError(err, "migrate", "")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Builder implements query.Store.
func (s *Store) Builder() query.Builder {
	return &builder{store: s}
}

// mapError turns driver errors into go-errors values with the
// go-repository-bun mappers and tags them with the failed operation.
func (s *Store) mapError(err error, op, index string) error {
	if err == nil {
		return nil
	}
	if !goerrors.IsWrapped(err) {
		err = repository.MapDatabaseError(err, s.driver)
	}
	meta := map[string]any{"store": "sql", "operation": op, "index": index}

	var retryable *goerrors.RetryableError
	if errors.As(err, &retryable) && retryable.BaseError != nil {
		retryable.WithMetadata(meta)
		return err
	}
	var rich *goerrors.Error
	if errors.As(err, &rich) {
		rich.WithMetadata(meta)
	}
	return err
}
