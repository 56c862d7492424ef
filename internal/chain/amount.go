package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/credpay/credpay/internal/apperr"
)

// Decimals is the native currency precision (CTC, 18 decimals).
const Decimals = 18

// ParseAmount converts a user-entered CTC amount into wei. Empty, non-numeric,
// zero and negative inputs are rejected before anything reaches the chain
// client.
func ParseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount is required", apperr.ErrValidation)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", apperr.ErrValidation, s)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperr.ErrValidation)
	}
	wei := d.Shift(Decimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: amount has more than %d decimal places", apperr.ErrValidation, Decimals)
	}
	return wei.BigInt(), nil
}

// FormatAmount renders a wei value back as a CTC decimal string.
func FormatAmount(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -Decimals).String()
}
