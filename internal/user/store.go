package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

const userCols = `id, username, email, password_hash, use_case, experience, created_at, updated_at`

// Store manages user accounts backed by PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a user Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create inserts a new user and fills in the generated id and timestamps.
// Returns ErrDuplicate when the email or username is already registered.
func (s *Store) Create(ctx context.Context, u *User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, use_case, experience)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, u.UseCase, u.Experience,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("user created", "user_id", u.ID)
	return nil
}

// GetByEmail returns the user registered under the given email, including
// the password hash for credential checks. Returns ErrNotFound when no
// account matches.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.get(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email)
}

// GetByID returns the user with the given id, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.get(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
}

func (s *Store) get(ctx context.Context, sql string, arg any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, sql, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.UseCase, &u.Experience, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}
