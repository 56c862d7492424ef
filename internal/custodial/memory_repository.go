package custodial

import (
	"context"
	"sort"
	"sync"

	"github.com/credpay/credpay/internal/apperr"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Wallet
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.WalletID]; exists {
		return apperr.ErrValidation
	}
	r.storage[wallet.WalletID] = wallet
	return nil
}

func (r *memoryRepository) Get(_ context.Context, walletID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[walletID]
	if !ok {
		return Wallet{}, apperr.ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var wallets []Wallet
	for _, w := range r.storage {
		if w.UserID == userID {
			wallets = append(wallets, w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].CreatedAt.Before(wallets[j].CreatedAt) })
	return wallets, nil
}

func (r *memoryRepository) UpdateAIAccess(_ context.Context, userID, walletID string, policy AccessPolicy) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[walletID]
	if !ok || wallet.UserID != userID {
		return Wallet{}, apperr.ErrNotFound
	}
	wallet.AIAccess = policy
	r.storage[walletID] = wallet
	return wallet, nil
}
