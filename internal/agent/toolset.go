package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/credpay/credpay/internal/custodial"
	"github.com/credpay/credpay/internal/payments"
)

// ToolSendPayment is the single tool exposed to the model.
const ToolSendPayment = "send_payment"

// ErrUnknownTool indicates the model requested a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Toolset executes model-requested tools against the payment service, with
// every transfer passing through the custodial access gate first.
type Toolset struct {
	payments *payments.Service
	gate     *custodial.Gate
	walletID string // custodial wallet the agent spends from
	from     string // its on-chain address
}

// NewToolset builds the agent's toolset bound to one custodial wallet.
func NewToolset(pay *payments.Service, gate *custodial.Gate, walletID, from string) *Toolset {
	return &Toolset{payments: pay, gate: gate, walletID: walletID, from: from}
}

// Execute runs one tool call and returns a plain-text result the model can
// relay. Tool failures are returned as text, not errors, so the model can
// explain them to the user.
func (t *Toolset) Execute(ctx context.Context, call ToolCall) (string, error) {
	if call.Name != ToolSendPayment {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	recipient, _ := call.Args["recipient"].(string)
	amount, _ := call.Args["amount"].(string)
	if recipient == "" || amount == "" {
		return "send_payment needs both a recipient and an amount", nil
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Sprintf("amount %q is not a valid number", amount), nil
	}
	if !parsed.IsPositive() {
		return fmt.Sprintf("amount %q must be a positive number of CTC", amount), nil
	}

	if err := t.gate.Authorize(ctx, t.walletID, parsed); err != nil {
		switch {
		case errors.Is(err, custodial.ErrAccessDenied):
			return "payment blocked: the wallet owner has not granted send access", nil
		case errors.Is(err, custodial.ErrLimitExceeded):
			return "payment blocked: this transfer would exceed the daily spending limit", nil
		default:
			return "", err
		}
	}

	result, err := t.payments.Send(ctx, payments.SendInput{
		From:      t.from,
		Recipient: recipient,
		Amount:    amount,
	})
	if err != nil {
		return fmt.Sprintf("payment failed: %v", err), nil
	}
	return fmt.Sprintf("payment confirmed: sent %s CTC to %s (tx %s)", amount, result.To, result.TxHash), nil
}
