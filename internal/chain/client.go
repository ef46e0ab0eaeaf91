package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// TxState is the externally observed state of an on-chain transfer.
type TxState int

const (
	// StatePending means the node has not produced a receipt yet. Callers
	// must not treat this as failure; late confirmations are normal.
	StatePending TxState = iota
	StateConfirmed
	StateRejected
)

// Client abstracts the HayekCoin token contract reached over JSON-RPC.
// Signing and nonce management live in the node/provider, not here.
type Client interface {
	SendTransfer(ctx context.Context, from, to string, amount int64) (hash string, err error)
	TransactionStatus(ctx context.Context, hash string) (TxState, error)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type receipt struct {
	Status string `json:"status"`
}

// RPCClient talks to an EVM-style node over HTTP JSON-RPC.
type RPCClient struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Int64
}

func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *RPCClient) SendTransfer(ctx context.Context, from, to string, amount int64) (string, error) {
	params := map[string]string{
		"from":  from,
		"to":    to,
		"value": "0x" + strconv.FormatInt(amount, 16),
	}
	var hash string
	if err := c.call(ctx, "eth_sendTransaction", []any{params}, &hash); err != nil {
		return "", err
	}
	if hash == "" {
		return "", fmt.Errorf("node returned empty transaction hash")
	}
	return hash, nil
}

func (c *RPCClient) TransactionStatus(ctx context.Context, hash string) (TxState, error) {
	var rec *receipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []any{hash}, &rec); err != nil {
		return StatePending, err
	}
	if rec == nil {
		return StatePending, nil
	}
	if rec.Status == "0x1" {
		return StateConfirmed, nil
	}
	return StateRejected, nil
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc call %s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("rpc call %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc call %s: node error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("rpc call %s: decode result: %w", method, err)
		}
	}
	return nil
}
