package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/credpay/credpay/internal/apperr"
)

const uniqueViolationCode = "23505"

// ErrWalletExists indicates a record already exists for the wallet address;
// Register treats it as the idempotent no-op case.
var ErrWalletExists = errors.New("wallet already registered")

// Repository persists user records. Implementations must guarantee that no two
// records ever carry the same case-folded username: uniqueness is enforced by
// the store itself, not by callers pre-checking availability.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByWallet(ctx context.Context, address string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	UpdateUsername(ctx context.Context, address, username string) (User, error)
	TouchLastSeen(ctx context.Context, address string, at time.Time) error
	SetVerified(ctx context.Context, address string, verified bool) error
}

// PostgresRepository implements Repository on PostgreSQL. The users table
// carries a unique index on lower(username), so concurrent claims of the same
// name race inside the database and exactly one writer wins.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (wallet_address, username, is_verified, created_at, last_seen)
        VALUES ($1, $2, $3, $4, $5)`,
		user.WalletAddress, user.Username, user.IsVerified, user.CreatedAt.UTC(), user.LastSeen.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return apperr.ErrUsernameTaken
			}
			return ErrWalletExists
		}
		return err
	}
	return nil
}

// FindByWallet fetches a user by wallet address.
func (r *PostgresRepository) FindByWallet(ctx context.Context, address string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT wallet_address, username, is_verified, created_at, last_seen
        FROM users WHERE wallet_address = $1`, address)
	return scanUser(row)
}

// FindByUsername fetches a user by case-folded username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT wallet_address, username, is_verified, created_at, last_seen
        FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row)
}

// UpdateUsername writes the new username in a single statement. The unique
// index closes the check-then-act window: if another wallet claimed the name
// between the caller's availability check and this write, the statement fails
// and nothing is mutated.
func (r *PostgresRepository) UpdateUsername(ctx context.Context, address, username string) (User, error) {
	row := r.db.QueryRow(ctx, `UPDATE users SET username = $1, last_seen = now()
        WHERE wallet_address = $2
        RETURNING wallet_address, username, is_verified, created_at, last_seen`, username, address)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return User{}, apperr.ErrUsernameTaken
		}
		return User{}, err
	}
	return user, nil
}

// TouchLastSeen records wallet activity.
func (r *PostgresRepository) TouchLastSeen(ctx context.Context, address string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET last_seen = $1 WHERE wallet_address = $2`, at.UTC(), address)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", apperr.ErrNotFound, address)
	}
	return nil
}

// SetVerified flips the verification flag set by the external trust process.
func (r *PostgresRepository) SetVerified(ctx context.Context, address string, verified bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET is_verified = $1 WHERE wallet_address = $2`, verified, address)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", apperr.ErrNotFound, address)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		user      User
		createdAt time.Time
		lastSeen  time.Time
	)
	if err := row.Scan(&user.WalletAddress, &user.Username, &user.IsVerified, &createdAt, &lastSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.ErrNotFound
		}
		return User{}, err
	}
	user.CreatedAt = createdAt.UTC()
	user.LastSeen = lastSeen.UTC()
	return user, nil
}
