package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/credpay/credpay/internal/apperr"
)

type memoryRepository struct {
	mu       sync.RWMutex
	byWallet map[string]User
	// byName indexes case-folded username -> wallet address. All mutations go
	// through one mutex, which gives the same at-most-one-winner guarantee the
	// unique index provides in Postgres.
	byName map[string]string
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byWallet: make(map[string]User),
		byName:   make(map[string]string),
	}
}

func fold(s string) string { return strings.ToLower(s) }

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byWallet[user.WalletAddress]; exists {
		return ErrWalletExists
	}
	if owner, exists := r.byName[fold(user.Username)]; exists && owner != user.WalletAddress {
		return apperr.ErrUsernameTaken
	}
	r.byWallet[user.WalletAddress] = user
	r.byName[fold(user.Username)] = user.WalletAddress
	return nil
}

func (r *memoryRepository) FindByWallet(_ context.Context, address string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byWallet[address]
	if !ok {
		return User{}, apperr.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	address, ok := r.byName[fold(username)]
	if !ok {
		return User{}, apperr.ErrNotFound
	}
	return r.byWallet[address], nil
}

func (r *memoryRepository) UpdateUsername(_ context.Context, address, username string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byWallet[address]
	if !ok {
		return User{}, apperr.ErrNotFound
	}
	folded := fold(username)
	if owner, exists := r.byName[folded]; exists && owner != address {
		return User{}, apperr.ErrUsernameTaken
	}
	delete(r.byName, fold(user.Username))
	user.Username = username
	user.LastSeen = time.Now().UTC()
	r.byWallet[address] = user
	r.byName[folded] = address
	return user, nil
}

func (r *memoryRepository) TouchLastSeen(_ context.Context, address string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byWallet[address]
	if !ok {
		return apperr.ErrNotFound
	}
	user.LastSeen = at.UTC()
	r.byWallet[address] = user
	return nil
}

func (r *memoryRepository) SetVerified(_ context.Context, address string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byWallet[address]
	if !ok {
		return apperr.ErrNotFound
	}
	user.IsVerified = verified
	r.byWallet[address] = user
	return nil
}
