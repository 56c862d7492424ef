package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/credpay/credpay/internal/apperr"
	"github.com/credpay/credpay/internal/chain"
	"github.com/credpay/credpay/internal/notification"
	"github.com/credpay/credpay/internal/registry"
)

const (
	targetChain  = uint64(102031)
	senderWallet = "0x9999000000000000000000000000000000009999"
	bobWallet    = "0xAbCd000000000000000000000000000000001234"
	bobFolded    = "0xabcd000000000000000000000000000000001234"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func newTestService(t *testing.T, sim *chain.Simulator) (*Service, *registry.Service, *testNotifier) {
	t.Helper()
	reg := registry.NewService(registry.NewMemoryRepository())
	notifier := &testNotifier{}
	svc := NewService(reg, sim, notifier, targetChain, "Creditcoin Testnet")

	ctx := context.Background()
	if _, err := reg.Register(ctx, bobWallet); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	if _, err := reg.ChangeUsername(ctx, bobWallet, "bob"); err != nil {
		t.Fatalf("claim bob: %v", err)
	}
	return svc, reg, notifier
}

func TestSendToUsernameConfirms(t *testing.T) {
	sim := chain.NewSimulator(targetChain)
	svc, _, notifier := newTestService(t, sim)

	res, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "bob", Amount: "0.5"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.State != StateConfirmed {
		t.Fatalf("expected confirmed, got %s", res.State)
	}
	if res.To != bobFolded {
		t.Fatalf("resolved to %s", res.To)
	}

	sent := sim.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(sent))
	}
	if sent[0].Value.String() != "500000000000000000" {
		t.Fatalf("unexpected value %s", sent[0].Value)
	}
	if sim.SwitchCalls() != 0 {
		t.Fatalf("no switch expected on matching chain")
	}
	if notifier.last.Kind != notification.KindPaymentConfirmed {
		t.Fatalf("expected confirmation notification")
	}

	// Trail skips Switching when the chain already matches.
	want := []State{StateIdle, StateResolving, StateSubmitting, StateConfirming, StateConfirmed}
	if len(res.Trail) != len(want) {
		t.Fatalf("trail %v", res.Trail)
	}
	for i, s := range want {
		if res.Trail[i] != s {
			t.Fatalf("trail[%d] = %s, want %s", i, res.Trail[i], s)
		}
	}
}

func TestSendToAddressSkipsRegistry(t *testing.T) {
	sim := chain.NewSimulator(targetChain)
	svc, _, _ := newTestService(t, sim)

	// Unregistered raw address resolves directly.
	res, err := svc.Send(context.Background(), SendInput{
		From:      senderWallet,
		Recipient: "0x2222000000000000000000000000000000002222",
		Amount:    "1",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.To != "0x2222000000000000000000000000000000002222" {
		t.Fatalf("resolved to %s", res.To)
	}
}

func TestSendUnknownUsernameFails(t *testing.T) {
	sim := chain.NewSimulator(targetChain)
	svc, _, _ := newTestService(t, sim)

	res, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "nobody", Amount: "1"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if len(sim.Sent()) != 0 {
		t.Fatalf("nothing may be submitted on resolution failure")
	}
}

func TestAmountGuard(t *testing.T) {
	sim := chain.NewSimulator(targetChain)
	svc, _, _ := newTestService(t, sim)

	for _, amount := range []string{"0", "-1", ""} {
		res, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "bob", Amount: amount})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("amount %q: expected validation error, got %v", amount, err)
		}
		if res.State != StateFailed {
			t.Fatalf("amount %q: expected failed state", amount)
		}
	}
	if len(sim.Sent()) != 0 {
		t.Fatalf("invalid amounts must never reach chain submission")
	}
}

func TestNetworkMismatchSwitchesBeforeSubmitting(t *testing.T) {
	sim := chain.NewSimulator(1) // connected to mainnet ethereum
	svc, _, _ := newTestService(t, sim)

	res, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "bob", Amount: "0.1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sim.SwitchCalls() != 1 {
		t.Fatalf("expected one switch request, got %d", sim.SwitchCalls())
	}
	hasSwitch := false
	for _, s := range res.Trail {
		if s == StateSwitching {
			hasSwitch = true
		}
	}
	if !hasSwitch {
		t.Fatalf("trail missing switching state: %v", res.Trail)
	}
}

func TestRejectedSwitchEndsFailed(t *testing.T) {
	sim := chain.NewSimulator(1)
	sim.RejectSwitch()
	svc, _, _ := newTestService(t, sim)

	res, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "bob", Amount: "0.1"})
	if !errors.Is(err, apperr.ErrNetworkMismatch) {
		t.Fatalf("expected network mismatch, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if len(sim.Sent()) != 0 {
		t.Fatalf("no transaction may be sent after a rejected switch")
	}
}

func TestBenignDataErrorIgnored(t *testing.T) {
	sim := chain.NewSimulator(targetChain)
	sim.EmitDataErrorOnSend()
	svc, _, _ := newTestService(t, sim)

	res, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "bob", Amount: "0.1"})
	if err != nil {
		t.Fatalf("benign data error must not fail the flow: %v", err)
	}
	if res.State != StateConfirmed {
		t.Fatalf("expected confirmed, got %s", res.State)
	}
}

func TestRevertedReceiptFails(t *testing.T) {
	sim := chain.NewSimulator(targetChain)
	sim.FailReceipts()
	svc, _, _ := newTestService(t, sim)

	res, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "bob", Amount: "0.1"})
	if !errors.Is(err, apperr.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if res.TxHash == "" {
		t.Fatalf("failed confirmation still carries the hash")
	}
}

func TestSenderLazyRegistration(t *testing.T) {
	sim := chain.NewSimulator(targetChain)
	svc, reg, _ := newTestService(t, sim)

	if _, err := svc.Send(context.Background(), SendInput{From: senderWallet, Recipient: "bob", Amount: "0.1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := reg.GetUserByWallet(context.Background(), senderWallet); err != nil {
		t.Fatalf("sender should be lazily registered: %v", err)
	}
}
