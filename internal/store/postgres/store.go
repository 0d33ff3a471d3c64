// Package postgres implements the store contract on PostgreSQL through the
// pgx database/sql driver. The schema is managed by embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/dmitrijs2005/tokenmigrate/internal/store/postgres/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Store vends the PostgreSQL repositories bound to one connection pool.
type Store struct {
	db      *sql.DB
	users   *UsersRepository
	backups *BackupsRepository
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open connects to dsn, verifies the connection and applies migrations.
// Connection failures are reported as store.ErrUnavailable.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: db open error: %v", store.ErrUnavailable, err)
	}

	s := New(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

// New wraps an already opened database without touching the schema.
func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		users:   NewUsersRepository(db),
		backups: NewBackupsRepository(db),
	}
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

func (s *Store) Users() store.Users     { return s.users }
func (s *Store) Backups() store.Backups { return s.backups }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
