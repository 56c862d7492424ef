package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/credpay/credpay/internal/apperr"
	"github.com/credpay/credpay/internal/chain"
	"github.com/credpay/credpay/internal/notification"
	"github.com/credpay/credpay/internal/registry"
)

// State labels a step of a single submission attempt.
type State string

// Submission states. Resolving and Switching are skipped when their condition
// is already satisfied; Confirmed and Failed are terminal and an attempt never
// re-enters Idle.
const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateSwitching  State = "switching"
	StateSubmitting State = "submitting"
	StateConfirming State = "confirming"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
)

// benignDataError is the error substring the chain client library emits when a
// plain value transfer carries no call data. The transfer itself succeeds, so
// this is never surfaced as a failure.
const benignDataError = "cannot include data"

// Service orchestrates recipient resolution, network alignment and transfer
// submission against the external chain client.
type Service struct {
	registry    *registry.Service
	client      chain.Client
	notifier    notification.Notifier
	targetChain uint64
	chainName   string
}

// NewService constructs a payment service targeting the configured chain.
func NewService(reg *registry.Service, client chain.Client, notifier notification.Notifier, targetChain uint64, chainName string) *Service {
	return &Service{
		registry:    reg,
		client:      client,
		notifier:    notifier,
		targetChain: targetChain,
		chainName:   chainName,
	}
}

// SendInput captures a submission attempt.
type SendInput struct {
	From      string
	Recipient string // raw address or username
	Amount    string // decimal CTC
}

// Result reports the terminal outcome of an attempt together with the state
// trail it walked.
type Result struct {
	TxHash      string
	From        string
	To          string
	AmountWei   string
	State       State
	Trail       []State
	CompletedAt time.Time
}

type attempt struct {
	trail []State
}

func newAttempt() *attempt {
	return &attempt{trail: []State{StateIdle}}
}

func (a *attempt) enter(s State) {
	a.trail = append(a.trail, s)
}

func (a *attempt) fail(res *Result, err error) (Result, error) {
	a.enter(StateFailed)
	res.State = StateFailed
	res.Trail = a.trail
	res.CompletedAt = time.Now().UTC()
	return *res, err
}

// Resolve maps recipient input text to a destination address without
// submitting anything. Used by the deep-link prefill endpoint.
func (s *Service) Resolve(ctx context.Context, recipient string) (string, error) {
	return s.registry.Resolve(ctx, recipient)
}

// Send runs one submission attempt through the full state machine. The
// returned Result always carries the trail, including on failure.
func (s *Service) Send(ctx context.Context, input SendInput) (Result, error) {
	att := newAttempt()
	res := &Result{From: input.From}

	if input.From != "" {
		// Sender activity doubles as the lazy-registration trigger.
		if _, err := s.registry.Register(ctx, input.From); err != nil {
			return att.fail(res, err)
		}
	}

	att.enter(StateResolving)
	to, err := s.registry.Resolve(ctx, input.Recipient)
	if err != nil {
		return att.fail(res, err)
	}
	res.To = to

	amount, err := chain.ParseAmount(input.Amount)
	if err != nil {
		return att.fail(res, err)
	}
	res.AmountWei = amount.String()

	current, err := s.client.CurrentChain(ctx)
	if err != nil {
		return att.fail(res, fmt.Errorf("%w: %v", apperr.ErrExternalService, err))
	}
	if current != s.targetChain {
		att.enter(StateSwitching)
		if err := s.client.SwitchChain(ctx, s.targetChain); err != nil {
			// A rejected switch must not leave the flow stuck: nothing is
			// submitted and the attempt terminates.
			return att.fail(res, fmt.Errorf("%w: switch to %s rejected: %v", apperr.ErrNetworkMismatch, s.chainName, err))
		}
	}

	att.enter(StateSubmitting)
	hash, err := s.client.SendTransaction(ctx, chain.Tx{From: input.From, To: to, Value: amount})
	if err != nil && !isBenignDataError(err) {
		return att.fail(res, fmt.Errorf("%w: %v", apperr.ErrExternalService, err))
	}
	if hash == "" {
		return att.fail(res, fmt.Errorf("%w: no transaction hash returned", apperr.ErrExternalService))
	}
	res.TxHash = hash

	att.enter(StateConfirming)
	receipt, err := s.client.WaitForReceipt(ctx, hash)
	if err != nil {
		return att.fail(res, fmt.Errorf("%w: %v", apperr.ErrExternalService, err))
	}
	if receipt.Status != chain.ReceiptStatusSuccess {
		return att.fail(res, fmt.Errorf("%w: transaction %s reverted", apperr.ErrExternalService, hash))
	}

	att.enter(StateConfirmed)
	res.State = StateConfirmed
	res.Trail = att.trail
	res.CompletedAt = time.Now().UTC()

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPaymentConfirmed,
			Destination: to,
			Body:        fmt.Sprintf("You received %s CTC (tx %s)", chain.FormatAmount(amount), hash),
		})
	}

	return *res, nil
}

func isBenignDataError(err error) bool {
	return err != nil && strings.Contains(err.Error(), benignDataError)
}
