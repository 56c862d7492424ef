package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/credpay/credpay/internal/apperr"
	"github.com/credpay/credpay/internal/validate"
)

const placeholderAttempts = 5

// Service manages the wallet address <-> username mapping.
type Service struct {
	repo Repository
}

// NewService creates a registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register lazily creates a user record the first time a wallet address is
// seen. Idempotent: repeat calls return the existing record and only touch
// LastSeen. Syntactically invalid addresses never create a record.
func (s *Service) Register(ctx context.Context, walletAddress string) (User, error) {
	if !validate.IsValidAddress(walletAddress) {
		return User{}, fmt.Errorf("%w: invalid wallet address", apperr.ErrValidation)
	}
	address := validate.NormalizeAddress(walletAddress)

	if existing, err := s.repo.FindByWallet(ctx, address); err == nil {
		_ = s.repo.TouchLastSeen(ctx, address, time.Now())
		existing.LastSeen = time.Now().UTC()
		return existing, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, fmt.Errorf("%w: %v", apperr.ErrExternalService, err)
	}

	now := time.Now().UTC()
	user := User{
		WalletAddress: address,
		CreatedAt:     now,
		LastSeen:      now,
	}

	for attempt := 0; attempt < placeholderAttempts; attempt++ {
		user.Username = placeholderUsername(address, attempt)
		err := s.repo.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, apperr.ErrUsernameTaken) {
			continue
		}
		// Lost a race against a concurrent Register for the same wallet.
		if errors.Is(err, ErrWalletExists) {
			return s.repo.FindByWallet(ctx, address)
		}
		return User{}, fmt.Errorf("%w: %v", apperr.ErrExternalService, err)
	}
	return User{}, fmt.Errorf("%w: could not allocate placeholder username", apperr.ErrExternalService)
}

// Availability reports whether a candidate username can be claimed by
// currentWallet. The validator runs first; renaming to a name you already own
// counts as available.
func (s *Service) Availability(ctx context.Context, candidate, currentWallet string) (bool, string, error) {
	ok, reason := validate.Username(candidate)
	if !ok {
		return false, reason, nil
	}

	owner, err := s.repo.FindByUsername(ctx, candidate)
	if errors.Is(err, apperr.ErrNotFound) {
		return true, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", apperr.ErrExternalService, err)
	}
	if currentWallet != "" && owner.WalletAddress == validate.NormalizeAddress(currentWallet) {
		return true, "", nil
	}
	return false, "username is already taken", nil
}

// ChangeUsername renames the record for walletAddress. Format is re-validated
// and ownership is re-checked inside the same atomic store write, so a stale
// availability check can never let two wallets end up with the same name. On
// success the previous username is immediately claimable by anyone.
func (s *Service) ChangeUsername(ctx context.Context, walletAddress, newUsername string) (User, error) {
	if !validate.IsValidAddress(walletAddress) {
		return User{}, fmt.Errorf("%w: invalid wallet address", apperr.ErrValidation)
	}
	// Case-folding is enforced here rather than trusted to the caller. Only
	// the fold: any other invalid character fails validation rather than
	// being silently stripped into a name the caller never asked for.
	username := strings.ToLower(newUsername)
	if ok, reason := validate.Username(username); !ok {
		return User{}, fmt.Errorf("%w: %s", apperr.ErrValidation, reason)
	}

	user, err := s.repo.UpdateUsername(ctx, validate.NormalizeAddress(walletAddress), username)
	if err != nil {
		if errors.Is(err, apperr.ErrUsernameTaken) || errors.Is(err, apperr.ErrNotFound) {
			return User{}, err
		}
		return User{}, fmt.Errorf("%w: %v", apperr.ErrExternalService, err)
	}
	return user, nil
}

// GetUserByWallet returns the record for a wallet address.
func (s *Service) GetUserByWallet(ctx context.Context, address string) (User, error) {
	return s.repo.FindByWallet(ctx, validate.NormalizeAddress(address))
}

// GetUsernameByAddress returns the username held by a wallet address.
func (s *Service) GetUsernameByAddress(ctx context.Context, address string) (string, error) {
	user, err := s.repo.FindByWallet(ctx, validate.NormalizeAddress(address))
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// Resolve turns recipient input text into a destination address. Raw addresses
// pass through without a registry lookup; anything else is treated as a
// username candidate.
func (s *Service) Resolve(ctx context.Context, recipient string) (string, error) {
	if validate.IsValidAddress(recipient) {
		return validate.NormalizeAddress(recipient), nil
	}
	user, err := s.repo.FindByUsername(ctx, recipient)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", fmt.Errorf("%w: no user with username %q", apperr.ErrNotFound, recipient)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExternalService, err)
	}
	return user.WalletAddress, nil
}

// SetVerified flips the trust flag; the verification decision itself is made
// by an external process.
func (s *Service) SetVerified(ctx context.Context, address string, verified bool) error {
	if !validate.IsValidAddress(address) {
		return fmt.Errorf("%w: invalid wallet address", apperr.ErrValidation)
	}
	return s.repo.SetVerified(ctx, validate.NormalizeAddress(address), verified)
}

// placeholderUsername derives a registration-time handle from the wallet
// address. Hex suffixes keep it inside the allowed charset; collisions fall
// back to a random fragment.
func placeholderUsername(address string, attempt int) string {
	base := "user" + address[len(address)-6:]
	if attempt == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:6]
}
