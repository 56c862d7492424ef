package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/credpay/credpay/internal/apperr"
)

const (
	walletA = "0xAbCd000000000000000000000000000000001234"
	walletB = "0x1111000000000000000000000000000000002222"
)

func TestRegisterIdempotent(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	first, err := svc.Register(ctx, walletA)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first.WalletAddress != "0xabcd000000000000000000000000000000001234" {
		t.Fatalf("expected folded address, got %s", first.WalletAddress)
	}
	if ok, _ := checkAvailability(t, svc, first.Username); ok {
		t.Fatalf("placeholder username should be held")
	}

	second, err := svc.Register(ctx, walletA)
	if err != nil {
		t.Fatalf("repeat register: %v", err)
	}
	if second.Username != first.Username {
		t.Fatalf("expected same record, got %s vs %s", second.Username, first.Username)
	}
}

func checkAvailability(t *testing.T, svc *Service, name string) (bool, string) {
	t.Helper()
	ok, reason, err := svc.Availability(context.Background(), name, "")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	return ok, reason
}

func TestRegisterRejectsInvalidAddress(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	for _, addr := range []string{"", "bob", "0x123", "0xZZcd000000000000000000000000000000001234"} {
		if _, err := svc.Register(context.Background(), addr); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("address %q: expected validation error, got %v", addr, err)
		}
	}
}

func TestChangeUsernameAndFreedName(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, walletA); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.ChangeUsername(ctx, walletA, "alice"); err != nil {
		t.Fatalf("change username: %v", err)
	}
	if name, _ := svc.GetUsernameByAddress(ctx, walletA); name != "alice" {
		t.Fatalf("expected alice, got %s", name)
	}

	if _, err := svc.ChangeUsername(ctx, walletA, "bob"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if ok, _ := checkAvailability(t, svc, "alice"); !ok {
		t.Fatalf("freed username should be immediately available")
	}
}

func TestChangeUsernameNormalizesCase(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, walletA); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.ChangeUsername(ctx, walletA, "Alice"); err != nil {
		t.Fatalf("change username: %v", err)
	}
	if name, _ := svc.GetUsernameByAddress(ctx, walletA); name != "alice" {
		t.Fatalf("expected folded username, got %s", name)
	}
}

func TestChangeUsernameRejectsInvalidCharacters(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, walletA); err != nil {
		t.Fatalf("register: %v", err)
	}
	before, err := svc.GetUsernameByAddress(ctx, walletA)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	// Invalid characters fail outright, they are never stripped into a
	// different name than the one requested.
	for _, candidate := range []string{"Al!ce", "al ice", "alice@pay", "böb"} {
		if _, err := svc.ChangeUsername(ctx, walletA, candidate); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("candidate %q: expected validation error, got %v", candidate, err)
		}
	}

	after, err := svc.GetUsernameByAddress(ctx, walletA)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if after != before {
		t.Fatalf("username mutated from %q to %q on rejected rename", before, after)
	}
}

func TestChangeUsernameConflict(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, walletA); err != nil {
		t.Fatalf("register A: %v", err)
	}
	if _, err := svc.Register(ctx, walletB); err != nil {
		t.Fatalf("register B: %v", err)
	}
	if _, err := svc.ChangeUsername(ctx, walletA, "alice"); err != nil {
		t.Fatalf("claim alice: %v", err)
	}

	if _, err := svc.ChangeUsername(ctx, walletB, "ALICE"); !errors.Is(err, apperr.ErrUsernameTaken) {
		t.Fatalf("expected conflict on case-folded duplicate, got %v", err)
	}

	// Renaming to a name you already hold is a no-op success.
	if _, err := svc.ChangeUsername(ctx, walletA, "alice"); err != nil {
		t.Fatalf("self rename: %v", err)
	}
}

func TestChangeUsernameUnknownWallet(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.ChangeUsername(context.Background(), walletA, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	wallets := []string{
		"0xaaaa000000000000000000000000000000000001",
		"0xaaaa000000000000000000000000000000000002",
		"0xaaaa000000000000000000000000000000000003",
		"0xaaaa000000000000000000000000000000000004",
	}
	for _, w := range wallets {
		if _, err := svc.Register(ctx, w); err != nil {
			t.Fatalf("register %s: %v", w, err)
		}
	}

	var wg sync.WaitGroup
	results := make([]error, len(wallets))
	for i, w := range wallets {
		wg.Add(1)
		go func(i int, w string) {
			defer wg.Done()
			_, results[i] = svc.ChangeUsername(ctx, w, "popular")
		}(i, w)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, apperr.ErrUsernameTaken):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	owner, err := svc.Resolve(ctx, "popular")
	if err != nil {
		t.Fatalf("resolve winner: %v", err)
	}
	holders := 0
	for _, w := range wallets {
		name, err := svc.GetUsernameByAddress(ctx, w)
		if err != nil {
			t.Fatalf("lookup %s: %v", w, err)
		}
		if name == "popular" {
			holders++
			if w != owner {
				t.Fatalf("resolve disagrees with holder")
			}
		}
	}
	if holders != 1 {
		t.Fatalf("registry holds %d records named popular", holders)
	}
}

func TestResolve(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, walletA); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.ChangeUsername(ctx, walletA, "bob"); err != nil {
		t.Fatalf("claim bob: %v", err)
	}

	addr, err := svc.Resolve(ctx, "bob")
	if err != nil {
		t.Fatalf("resolve username: %v", err)
	}
	if addr != "0xabcd000000000000000000000000000000001234" {
		t.Fatalf("unexpected resolution: %s", addr)
	}

	// Raw addresses pass through without a registry lookup.
	direct, err := svc.Resolve(ctx, walletB)
	if err != nil {
		t.Fatalf("resolve address: %v", err)
	}
	if direct != "0x1111000000000000000000000000000000002222" {
		t.Fatalf("unexpected direct resolution: %s", direct)
	}

	if _, err := svc.Resolve(ctx, "nobody"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
