package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// Simulator is a scriptable in-memory chain client for unit tests.
type Simulator struct {
	mu sync.Mutex

	chainID      uint64
	rejectSwitch bool
	sendErr      error
	benignErr    bool
	failReceipts bool

	switchCalls int
	sent        []Tx
	nextNonce   int
}

// NewSimulator creates a simulator currently connected to chainID.
func NewSimulator(chainID uint64) *Simulator {
	return &Simulator{chainID: chainID}
}

// RejectSwitch makes subsequent switch requests fail, mimicking a wallet
// declining the prompt.
func (s *Simulator) RejectSwitch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectSwitch = true
}

// FailSends makes SendTransaction return err.
func (s *Simulator) FailSends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

// EmitDataErrorOnSend reproduces the client library quirk where a plain value
// transfer goes through but an error about missing call data is still emitted.
func (s *Simulator) EmitDataErrorOnSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benignErr = true
}

// FailReceipts makes submitted transfers confirm with a failed status.
func (s *Simulator) FailReceipts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReceipts = true
}

// Sent returns the transfers submitted so far.
func (s *Simulator) Sent() []Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tx, len(s.sent))
	copy(out, s.sent)
	return out
}

// SwitchCalls reports how many switch requests were made.
func (s *Simulator) SwitchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switchCalls
}

// CurrentChain implements Client.
func (s *Simulator) CurrentChain(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID, nil
}

// SwitchChain implements Client.
func (s *Simulator) SwitchChain(_ context.Context, chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchCalls++
	if s.rejectSwitch {
		return errors.New("user rejected chain switch")
	}
	s.chainID = chainID
	return nil
}

// SendTransaction implements Client.
func (s *Simulator) SendTransaction(_ context.Context, tx Tx) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent = append(s.sent, Tx{From: tx.From, To: tx.To, Value: new(big.Int).Set(tx.Value)})
	s.nextNonce++
	hash := fmt.Sprintf("0xsim%064d", s.nextNonce)
	if s.benignErr {
		return hash, errors.New("transaction of this kind cannot include data")
	}
	return hash, nil
}

// WaitForReceipt implements Client.
func (s *Simulator) WaitForReceipt(_ context.Context, hash string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := ReceiptStatusSuccess
	if s.failReceipts {
		status = ReceiptStatusFailed
	}
	return Receipt{TxHash: hash, Status: status, BlockNumber: uint64(s.nextNonce)}, nil
}
