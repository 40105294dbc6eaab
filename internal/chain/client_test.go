package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcHandler answers JSON-RPC calls from a method table.
func rpcHandler(t *testing.T, methods map[string]func(params []json.RawMessage) (interface{}, *RPCError)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int               `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		fn, ok := methods[req.Method]
		if !ok {
			t.Errorf("unexpected RPC method %q", req.Method)
			return
		}
		result, rpcErr := fn(req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(t *testing.T, methods map[string]func(params []json.RawMessage) (interface{}, *RPCError)) *Client {
	t.Helper()
	srv := httptest.NewServer(rpcHandler(t, methods))
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{RPCURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestGetTipBlockNumber(t *testing.T) {
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"get_tip_block_number": func([]json.RawMessage) (interface{}, *RPCError) {
			return "0x1a2b", nil
		},
	})

	tip, err := c.GetTipBlockNumber(context.Background())
	if err != nil {
		t.Fatalf("get tip: %v", err)
	}
	if tip != 0x1a2b {
		t.Fatalf("expected 0x1a2b, got %#x", tip)
	}
}

func TestGetTransaction_UnknownIsNotAnError(t *testing.T) {
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"get_transaction": func([]json.RawMessage) (interface{}, *RPCError) {
			return nil, nil
		},
	})

	tws, err := c.GetTransaction(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tws.TxStatus.Status != StatusUnknown {
		t.Fatalf("expected unknown status, got %s", tws.TxStatus.Status)
	}
}

func TestSendTransaction(t *testing.T) {
	var sawValidator string
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"send_transaction": func(params []json.RawMessage) (interface{}, *RPCError) {
			if len(params) != 2 {
				return nil, &RPCError{Code: -32602, Message: "expected 2 params"}
			}
			_ = json.Unmarshal(params[1], &sawValidator)
			return "0xhash123", nil
		},
	})

	hash, err := c.SendTransaction(context.Background(), &Transaction{Version: "0x0"})
	if err != nil {
		t.Fatalf("send transaction: %v", err)
	}
	if hash != "0xhash123" {
		t.Fatalf("unexpected hash %s", hash)
	}
	if sawValidator != "passthrough" {
		t.Fatalf("expected passthrough validator, got %q", sawValidator)
	}
}

func TestSendTransaction_RPCErrorSurfaced(t *testing.T) {
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"send_transaction": func([]json.RawMessage) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -301, Message: "PoolRejectedDuplicatedTransaction"}
		},
	})

	_, err := c.SendTransaction(context.Background(), &Transaction{})
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %v", err)
	}
	if rpcErr.Code != -301 {
		t.Fatalf("unexpected code %d", rpcErr.Code)
	}
}

func TestWaitForCommit_EventuallyCommitted(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"get_transaction": func([]json.RawMessage) (interface{}, *RPCError) {
			status := StatusPending
			if calls.Add(1) >= 3 {
				status = StatusCommitted
			}
			return TxWithStatus{TxStatus: TxStatus{Status: status}}, nil
		},
	})

	status, err := c.WaitForCommit(context.Background(), "0xabc", time.Millisecond)
	if err != nil {
		t.Fatalf("wait for commit: %v", err)
	}
	if status.Status != StatusCommitted {
		t.Fatalf("expected committed, got %s", status.Status)
	}
}

func TestWaitForCommit_TimeoutDistinctFromRejected(t *testing.T) {
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"get_transaction": func([]json.RawMessage) (interface{}, *RPCError) {
			return TxWithStatus{TxStatus: TxStatus{Status: StatusPending}}, nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.WaitForCommit(ctx, "0xabc", time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
}

func TestWaitForCommit_DeadlineMidRequest(t *testing.T) {
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"get_transaction": func([]json.RawMessage) (interface{}, *RPCError) {
			time.Sleep(50 * time.Millisecond)
			return TxWithStatus{TxStatus: TxStatus{Status: StatusPending}}, nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.WaitForCommit(ctx, "0xabc", time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("deadline during the status request must map to ErrWaitTimeout, got %v", err)
	}
}

func TestWaitForCommit_Rejected(t *testing.T) {
	reason := "Resolve failed Dead"
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"get_transaction": func([]json.RawMessage) (interface{}, *RPCError) {
			return TxWithStatus{TxStatus: TxStatus{Status: StatusRejected, Reason: reason}}, nil
		},
	})

	status, err := c.WaitForCommit(context.Background(), "0xabc", time.Millisecond)
	if err != nil {
		t.Fatalf("wait for commit: %v", err)
	}
	if status.Status != StatusRejected || status.Reason != reason {
		t.Fatalf("expected rejection with reason, got %+v", status)
	}
}

func TestGetAllCells_Pagination(t *testing.T) {
	var page atomic.Int64
	c := newTestClient(t, map[string]func([]json.RawMessage) (interface{}, *RPCError){
		"get_cells": func(params []json.RawMessage) (interface{}, *RPCError) {
			n := page.Add(1)
			if n == 1 {
				return CellPage{
					Objects:    []IndexerCell{{OutputData: "0x01"}, {OutputData: "0x02"}},
					LastCursor: "0xcursor1",
				}, nil
			}
			var cursor string
			_ = json.Unmarshal(params[3], &cursor)
			if cursor != "0xcursor1" {
				return nil, &RPCError{Code: -1, Message: fmt.Sprintf("bad cursor %q", cursor)}
			}
			return CellPage{Objects: []IndexerCell{{OutputData: "0x03"}}}, nil
		},
	})

	cells, err := c.GetAllCells(context.Background(), TypePrefixSearch("0xcode", ""))
	if err != nil {
		t.Fatalf("get all cells: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells across pages, got %d", len(cells))
	}
}
