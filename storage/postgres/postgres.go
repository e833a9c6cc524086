// Package postgres provides a PostgreSQL implementation of the
// account.Store interface. Email uniqueness is enforced by a unique index
// and the paid transition is a direct single-row UPDATE, so all the
// concurrency guarantees live in the database rather than in application
// code.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihaimyh/paygate/pkg/account"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// Store implements account.Store using a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	config Config
}

// Config holds PostgreSQL storage configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL store adapter.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		config: config,
	}, nil
}

// Close closes the PostgreSQL connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies connectivity to the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser implements account.Store. The unique index on email makes the
// insert all-or-nothing under concurrent registrations: exactly one wins,
// the rest observe ErrDuplicateEmail.
func (s *Store) CreateUser(ctx context.Context, user *account.User) (*account.User, error) {
	if user == nil || user.Email == "" {
		return nil, fmt.Errorf("invalid user")
	}

	created := *user
	created.Paid = false

	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
		user.Name, user.Email, user.PasswordHash).Scan(
		&created.ID,
		&created.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, account.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &created, nil
}

// GetUserByEmail implements account.Store.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	return s.getUser(ctx,
		`SELECT id, name, email, password_hash, paid, created_at
			FROM users WHERE email = $1`,
		email)
}

// GetUserByID implements account.Store.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*account.User, error) {
	return s.getUser(ctx,
		`SELECT id, name, email, password_hash, paid, created_at
			FROM users WHERE id = $1`,
		id)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*account.User, error) {
	var user account.User

	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Paid,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, account.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// SetPaidByID implements account.Store. The unconditional single-row UPDATE
// is idempotent and race-free: concurrent writers for the same user all
// succeed and the row ends up paid.
func (s *Store) SetPaidByID(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET paid = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrUserNotFound
	}
	return nil
}

// SetPaidByEmail implements account.Store.
func (s *Store) SetPaidByEmail(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET paid = TRUE WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrUserNotFound
	}
	return nil
}
