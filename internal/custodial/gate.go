package custodial

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/credpay/credpay/internal/apperr"
)

var (
	// ErrAccessDenied indicates the wallet's policy forbids agent transfers.
	ErrAccessDenied = errors.New("ai access denied")

	// ErrLimitExceeded indicates the transfer would push cumulative spend over
	// the daily limit.
	ErrLimitExceeded = errors.New("daily spend limit exceeded")
)

// Gate is the delegation check consulted before any agent-initiated transfer
// executes.
type Gate struct {
	wallets Repository
	spend   SpendTracker
}

// NewGate builds the AI access gate.
func NewGate(wallets Repository, spend SpendTracker) *Gate {
	return &Gate{wallets: wallets, spend: spend}
}

// Authorize allows or denies an agent transfer of amount from walletID and, on
// allow, records the spend against the rolling window. Denied unless the
// policy is enabled with send-limited access and the window has headroom.
func (g *Gate) Authorize(ctx context.Context, walletID string, amount decimal.Decimal) error {
	// A non-positive amount must never reach the window: recording it would
	// free up headroom and let later transfers exceed the limit.
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", apperr.ErrValidation)
	}

	wallet, err := g.wallets.Get(ctx, walletID)
	if err != nil {
		return err
	}

	policy := wallet.AIAccess.Normalize()
	if !policy.Enabled {
		return fmt.Errorf("%w: agent access is disabled for this wallet", ErrAccessDenied)
	}
	if policy.Level != LevelSendLimited {
		return fmt.Errorf("%w: access level %s does not permit transfers", ErrAccessDenied, policy.Level)
	}

	spent, err := g.spend.Spent(ctx, walletID)
	if err != nil {
		return err
	}
	if spent.Add(amount).GreaterThan(policy.DailyLimit) {
		return fmt.Errorf("%w: %s spent of %s in the last 24h", ErrLimitExceeded, spent, policy.DailyLimit)
	}

	return g.spend.Record(ctx, walletID, amount)
}
