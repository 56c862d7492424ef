package custodial

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/credpay/credpay/internal/apperr"
)

// Repository persists custodial wallets and their AI access policies.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, walletID string) (Wallet, error)
	ListByUser(ctx context.Context, userID string) ([]Wallet, error)
	UpdateAIAccess(ctx context.Context, userID, walletID string, policy AccessPolicy) (Wallet, error)
}

// PostgresRepository stores custodial wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed custodial wallet repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a custodial wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.WalletID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO custodial_wallets
        (wallet_id, user_id, label, created_at, ai_enabled, ai_level, ai_daily_limit)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		walletID, wallet.UserID, wallet.Label, wallet.CreatedAt.UTC(),
		wallet.AIAccess.Enabled, string(wallet.AIAccess.Level), limitColumn(wallet.AIAccess))
	return err
}

// Get fetches a custodial wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, walletID string) (Wallet, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Wallet{}, apperr.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT wallet_id, user_id, label, created_at, ai_enabled, ai_level, ai_daily_limit
        FROM custodial_wallets WHERE wallet_id = $1`, id)
	return scanWallet(row)
}

// ListByUser returns all custodial wallets owned by userID.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	rows, err := r.db.Query(ctx, `SELECT wallet_id, user_id, label, created_at, ai_enabled, ai_level, ai_daily_limit
        FROM custodial_wallets WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// UpdateAIAccess writes the policy, scoped to the owning user so one user
// cannot change another's delegation settings.
func (r *PostgresRepository) UpdateAIAccess(ctx context.Context, userID, walletID string, policy AccessPolicy) (Wallet, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Wallet{}, apperr.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE custodial_wallets
        SET ai_enabled = $1, ai_level = $2, ai_daily_limit = $3
        WHERE wallet_id = $4 AND user_id = $5
        RETURNING wallet_id, user_id, label, created_at, ai_enabled, ai_level, ai_daily_limit`,
		policy.Enabled, string(policy.Level), limitColumn(policy), id, userID)
	return scanWallet(row)
}

func limitColumn(p AccessPolicy) *string {
	if p.Level != LevelSendLimited {
		return nil
	}
	s := p.DailyLimit.String()
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		level     string
		limit     *string
		w         Wallet
	)
	if err := row.Scan(&id, &w.UserID, &w.Label, &createdAt, &w.AIAccess.Enabled, &level, &limit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, apperr.ErrNotFound
		}
		return Wallet{}, err
	}
	w.WalletID = id.String()
	w.CreatedAt = createdAt.UTC()
	w.AIAccess.Level = AccessLevel(level)
	if limit != nil {
		if d, err := decimal.NewFromString(*limit); err == nil {
			w.AIAccess.DailyLimit = d
		}
	}
	return w, nil
}
