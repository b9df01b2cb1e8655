// Package postgres implements repository.Store on top of lib/pq and
// golang-migrate, generalizing the teacher's PostgresDB
// (internal/repository/postgres/postgres.go) from one flat connection
// struct with ad hoc methods into per-entity files implementing the
// repository.Store sub-interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/config"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/logger"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store implements repository.Store against a single *sql.DB pool.
type Store struct {
	db *sql.DB
}

// New opens a connection pool per cfg and verifies it with a ping. It does
// not run migrations; call RunMigrations explicitly so callers control
// when schema changes happen.
func New(cfg config.DatabaseConfig) (*Store, error) {
	dsn := cfg.GetDSN()
	logger.Log.WithField("host", cfg.Host).Info("connecting to postgres")

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository/postgres: opening database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.ConnectionLimit)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("repository/postgres: connecting to database: %w", err)
	}

	logger.Log.Info("connected to postgres")
	return &Store{db: conn}, nil
}

// DB exposes the underlying pool for components (session advisory locks,
// job queue polling) that need raw SQL access.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RunMigrations applies every pending migration under migrationsPath.
func (s *Store) RunMigrations(migrationsPath string) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("repository/postgres: creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("repository/postgres: creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("repository/postgres: applying migrations: %w", err)
	}

	logger.Log.Info("database migrations applied")
	return nil
}

// WithTx runs fn inside a transaction, committing iff fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository/postgres: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.WithError(rbErr).Error("rolling back transaction after error")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository/postgres: committing transaction: %w", err)
	}
	return nil
}
