package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStoreClosed is returned by DB after Close has been called.
var ErrStoreClosed = errors.New("store closed")

// Opener dials the underlying database.
type Opener func(ctx context.Context) (*gorm.DB, error)

// Store is the process-wide handle to the document store. The connection is opened lazily on first
// use; concurrent callers share one initialisation and a failed attempt is retried by the next call.
type Store struct {
	mu       sync.Mutex
	open     Opener
	migrate  func(*gorm.DB) error
	db       *gorm.DB
	closed   bool
	attempts uint
	logger   zerolog.Logger
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithMigration runs fn once right after the connection is established.
func WithMigration(fn func(*gorm.DB) error) StoreOption {
	return func(s *Store) {
		s.migrate = fn
	}
}

// WithConnectAttempts bounds the number of dial attempts made per initialisation.
func WithConnectAttempts(n uint) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithLogger attaches a logger used for connection lifecycle events.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "store").Logger()
	}
}

// NewStore builds a lazily connected store.
func NewStore(open Opener, opts ...StoreOption) *Store {
	s := &Store{open: open, attempts: 3, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromDB wraps an already opened connection. Used by tests and tooling.
func FromDB(db *gorm.DB) *Store {
	return &Store{db: db, logger: zerolog.Nop()}
}

// DB returns the connection bound to ctx, connecting first if needed.
func (s *Store) DB(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if s.db != nil {
		return s.db.WithContext(ctx), nil
	}
	if s.open == nil {
		return nil, fmt.Errorf("store has no opener configured")
	}

	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		conn, err := s.open(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("store connection attempt failed")
			return nil, err
		}
		return conn, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.attempts),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	if s.migrate != nil {
		if err := s.migrate(db); err != nil {
			closeDB(db)
			return nil, fmt.Errorf("migrate store: %w", err)
		}
	}

	s.db = db
	s.logger.Info().Msg("store connected")
	return s.db.WithContext(ctx), nil
}

// Ping connects if needed and checks the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.DB(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	err := closeDB(s.db)
	s.db = nil
	return err
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PostgresOpener returns an Opener for the given DSN and pool limits.
func PostgresOpener(dsn string, maxOpen, maxIdle int) Opener {
	return func(ctx context.Context) (*gorm.DB, error) {
		if dsn == "" {
			return nil, backoff.Permanent(fmt.Errorf("postgres dsn must not be empty"))
		}

		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if maxOpen > 0 {
			sqlDB.SetMaxOpenConns(maxOpen)
		}
		if maxIdle > 0 {
			sqlDB.SetMaxIdleConns(maxIdle)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}

		return db, nil
	}
}
