package custodial

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credpay/credpay/internal/apperr"
	"github.com/credpay/credpay/internal/validate"
)

// Service manages custodial wallets and their AI access policies.
type Service struct {
	repo Repository
}

// NewService creates a custodial wallet service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create provisions a custodial wallet for a user with delegation disabled.
func (s *Service) Create(ctx context.Context, userID, label string) (Wallet, error) {
	if !validate.IsValidAddress(userID) {
		return Wallet{}, fmt.Errorf("%w: invalid user wallet address", apperr.ErrValidation)
	}
	wallet := Wallet{
		WalletID:  uuid.NewString(),
		UserID:    validate.NormalizeAddress(userID),
		Label:     label,
		CreatedAt: time.Now().UTC(),
		AIAccess:  AccessPolicy{Enabled: false, Level: LevelNone},
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}
	return wallet, nil
}

// Get fetches a custodial wallet.
func (s *Service) Get(ctx context.Context, walletID string) (Wallet, error) {
	return s.repo.Get(ctx, walletID)
}

// ListByUser lists a user's custodial wallets.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	return s.repo.ListByUser(ctx, validate.NormalizeAddress(userID))
}

// UpdateAIAccess validates, normalizes and persists a wallet's delegation
// policy.
func (s *Service) UpdateAIAccess(ctx context.Context, userID, walletID string, policy AccessPolicy) (Wallet, error) {
	normalized := policy.Normalize()
	if err := normalized.Validate(); err != nil {
		return Wallet{}, err
	}
	return s.repo.UpdateAIAccess(ctx, validate.NormalizeAddress(userID), walletID, normalized)
}
