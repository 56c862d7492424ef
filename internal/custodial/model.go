package custodial

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/credpay/credpay/internal/apperr"
)

// AccessLevel enumerates what the agent may do with a custodial wallet.
type AccessLevel string

const (
	// LevelNone forbids all agent activity.
	LevelNone AccessLevel = "NONE"
	// LevelViewOnly allows balance and history reads, never transfers.
	LevelViewOnly AccessLevel = "VIEW_ONLY"
	// LevelSendLimited allows transfers under a rolling 24-hour spend ceiling.
	LevelSendLimited AccessLevel = "SEND_LIMITED"
)

// AccessPolicy is the per-wallet delegation policy consulted before any
// agent-initiated transfer. DailyLimit only carries meaning when Level is
// SEND_LIMITED; Normalize clears it everywhere else so the illegal state of a
// limit attached to a non-limited level cannot be persisted.
type AccessPolicy struct {
	Enabled    bool
	Level      AccessLevel
	DailyLimit decimal.Decimal
}

// Normalize returns the policy with the limit cleared unless the level is
// send-limited.
func (p AccessPolicy) Normalize() AccessPolicy {
	if p.Level != LevelSendLimited {
		p.DailyLimit = decimal.Decimal{}
	}
	return p
}

// Validate checks the policy shape.
func (p AccessPolicy) Validate() error {
	switch p.Level {
	case LevelNone, LevelViewOnly:
		return nil
	case LevelSendLimited:
		if p.DailyLimit.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: daily limit must be positive", apperr.ErrValidation)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown access level %q", apperr.ErrValidation, p.Level)
	}
}

// Wallet is a custodial wallet whose keys the service holds on behalf of a
// user, subject to the AI access policy.
type Wallet struct {
	WalletID  string
	UserID    string // owning wallet address, folded
	Label     string
	CreatedAt time.Time
	AIAccess  AccessPolicy
}
