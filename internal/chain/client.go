// Package chain abstracts the blockchain client the payment flow drives. The
// service consumes it as a black box with pending/success/error outcomes; the
// production implementation speaks EVM JSON-RPC, tests use the simulator.
package chain

import (
	"context"
	"math/big"
)

// Tx describes a plain value transfer. No call data is ever attached.
type Tx struct {
	From  string
	To    string
	Value *big.Int
}

// Receipt statuses surfaced by WaitForReceipt.
const (
	ReceiptStatusSuccess = "success"
	ReceiptStatusFailed  = "failed"
)

// Receipt reports the inclusion outcome of a submitted transfer.
type Receipt struct {
	TxHash      string
	Status      string
	BlockNumber uint64
}

// Client is the contract with the external chain stack.
type Client interface {
	// CurrentChain returns the chain id the connected wallet/node is on.
	CurrentChain(ctx context.Context) (uint64, error)
	// SwitchChain requests a switch to the target chain. The wallet may reject.
	SwitchChain(ctx context.Context, chainID uint64) error
	// SendTransaction submits a value transfer and returns its hash.
	SendTransaction(ctx context.Context, tx Tx) (string, error)
	// WaitForReceipt blocks until the transfer is included or the wait is
	// bounded out, and reports the terminal status.
	WaitForReceipt(ctx context.Context, hash string) (Receipt, error)
}
