package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/credpay/credpay/internal/apperr"
)

const (
	defaultPollInterval   = 3 * time.Second
	defaultRequestTimeout = 15 * time.Second
)

// RPCClient talks EVM JSON-RPC to a node whose signer holds the sending key.
type RPCClient struct {
	url            string
	httpClient     *http.Client
	receiptTimeout time.Duration
	pollInterval   time.Duration
	nextID         atomic.Int64
}

// NewRPCClient builds a JSON-RPC chain client. receiptTimeout bounds
// WaitForReceipt so a stuck transaction resolves to an error instead of
// hanging the flow.
func NewRPCClient(url string, receiptTimeout time.Duration) *RPCClient {
	if receiptTimeout <= 0 {
		receiptTimeout = 2 * time.Minute
	}
	return &RPCClient{
		url:            url,
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
		receiptTimeout: receiptTimeout,
		pollInterval:   defaultPollInterval,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params any, result any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: rpc %s: %v", apperr.ErrExternalService, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: rpc %s: %v", apperr.ErrExternalService, method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: rpc %s: status %d", apperr.ErrExternalService, method, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("%w: rpc %s: %v", apperr.ErrExternalService, method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("rpc %s: %s (code %d)", method, decoded.Error.Message, decoded.Error.Code)
	}
	if result != nil {
		if err := json.Unmarshal(decoded.Result, result); err != nil {
			return fmt.Errorf("%w: rpc %s: %v", apperr.ErrExternalService, method, err)
		}
	}
	return nil
}

// CurrentChain queries the node for its chain id.
func (c *RPCClient) CurrentChain(ctx context.Context) (uint64, error) {
	var hexID string
	if err := c.call(ctx, "eth_chainId", []any{}, &hexID); err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(hexID, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed chain id %q", apperr.ErrExternalService, hexID)
	}
	return id, nil
}

// SwitchChain verifies the node serves the requested chain. A server cannot
// drive a browser wallet's switch prompt; a node on the wrong chain is
// equivalent to the wallet rejecting the switch.
func (c *RPCClient) SwitchChain(ctx context.Context, chainID uint64) error {
	current, err := c.CurrentChain(ctx)
	if err != nil {
		return err
	}
	if current != chainID {
		return fmt.Errorf("%w: node serves chain %d, want %d", apperr.ErrNetworkMismatch, current, chainID)
	}
	return nil
}

type sendTxParam struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// SendTransaction submits a plain value transfer.
func (c *RPCClient) SendTransaction(ctx context.Context, tx Tx) (string, error) {
	var hash string
	param := sendTxParam{
		From:  tx.From,
		To:    tx.To,
		Value: "0x" + tx.Value.Text(16),
	}
	if err := c.call(ctx, "eth_sendTransaction", []any{param}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

type rpcReceipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	BlockNumber     string `json:"blockNumber"`
}

// WaitForReceipt polls for the transaction receipt until inclusion or the
// configured bound elapses, in which case the outcome is reported as unknown.
func (c *RPCClient) WaitForReceipt(ctx context.Context, hash string) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var raw *rpcReceipt
		if err := c.call(ctx, "eth_getTransactionReceipt", []any{hash}, &raw); err != nil {
			return Receipt{}, err
		}
		if raw != nil {
			receipt := Receipt{TxHash: raw.TransactionHash, Status: ReceiptStatusFailed}
			if raw.Status == "0x1" {
				receipt.Status = ReceiptStatusSuccess
			}
			if n, err := strconv.ParseUint(strings.TrimPrefix(raw.BlockNumber, "0x"), 16, 64); err == nil {
				receipt.BlockNumber = n
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("%w: transaction %s not confirmed before deadline", apperr.ErrExternalService, hash)
		case <-ticker.C:
		}
	}
}
