// Package chain provides CKB node and indexer interaction for popcli.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is a CKB JSON-RPC client. The node's built-in indexer is served on
// the same endpoint, so one client covers both surfaces.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	RPCURL  string
	Timeout time.Duration
}

// NewClient creates a new CKB client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// =============================================================================
// Core RPC Methods
// =============================================================================

// Call makes an RPC call to the CKB node.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	if req.Params == nil {
		req.Params = []interface{}{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// GetTipBlockNumber returns the current chain tip height.
func (c *Client) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.Call(ctx, "get_tip_block_number", nil)
	if err != nil {
		return 0, err
	}

	var hexNum string
	if err := json.Unmarshal(result, &hexNum); err != nil {
		return 0, err
	}
	return parseHexUint(hexNum)
}

// GetTransaction returns a transaction with its status. A transaction the
// node has never seen yields status "unknown", not an error.
func (c *Client) GetTransaction(ctx context.Context, txHash string) (*TxWithStatus, error) {
	result, err := c.Call(ctx, "get_transaction", []interface{}{txHash})
	if err != nil {
		return nil, err
	}

	if len(result) == 0 || string(result) == "null" {
		return &TxWithStatus{TxStatus: TxStatus{Status: StatusUnknown}}, nil
	}

	var tws TxWithStatus
	if err := json.Unmarshal(result, &tws); err != nil {
		return nil, err
	}
	if tws.TxStatus.Status == "" {
		tws.TxStatus.Status = StatusUnknown
	}
	return &tws, nil
}

// SendTransaction broadcasts a signed transaction and returns its hash.
// Outputs are passed through unvalidated so protocol scripts the node does
// not know about are accepted.
func (c *Client) SendTransaction(ctx context.Context, tx *Transaction) (string, error) {
	result, err := c.Call(ctx, "send_transaction", []interface{}{tx, "passthrough"})
	if err != nil {
		return "", err
	}

	var hash string
	if err := json.Unmarshal(result, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// ErrWaitTimeout reports that the wait bound elapsed before the transaction
// reached a final state.
var ErrWaitTimeout = errors.New("transaction status wait timed out")

// DefaultPollInterval is the default interval for polling transaction status.
const DefaultPollInterval = 2 * time.Second

// WaitForCommit polls transaction status until it is committed or rejected,
// or ctx is done. A transaction that stays unknown or pending is retried;
// the caller bounds the total wait through ctx.
func (c *Client) WaitForCommit(ctx context.Context, txHash string, pollInterval time.Duration) (*TxStatus, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrWaitTimeout, ctx.Err())
		case <-ticker.C:
			tws, err := c.GetTransaction(ctx, txHash)
			if err != nil {
				// The bound can expire mid-request; report that as a
				// timeout, not as a transport failure.
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %v", ErrWaitTimeout, ctx.Err())
				}
				return nil, err
			}
			switch tws.TxStatus.Status {
			case StatusCommitted, StatusRejected:
				status := tws.TxStatus
				return &status, nil
			}
		}
	}
}

func parseHexUint(s string) (uint64, error) {
	clean := strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(clean, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex number %q: %w", s, err)
	}
	return v, nil
}
