package ckbrpc

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeIndexer answers JSON-RPC requests with canned responses keyed by
// method name.
type fakeIndexer struct {
	t *testing.T

	mu       sync.Mutex
	handlers map[string]func(params []json.RawMessage) (any, *rpcError)
	requests []rpcRequest
}

func (f *fakeIndexer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	handler, ok := f.handlers[req.Method]

	resp := map[string]any{
		"jsonrpc": "2.0",
		"id":      req.ID,
	}
	switch {
	case !ok:
		resp["error"] = &rpcError{Code: -32601, Message: "no method"}

	default:
		result, rpcErr := handler(req.Params)
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		f.t.Errorf("unable to encode response: %v", err)
	}
}

// reqs returns the requests received so far.
func (f *fakeIndexer) reqs() []rpcRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]rpcRequest(nil), f.requests...)
}

func newTestClient(t *testing.T, f *fakeIndexer, pageSize uint32) *Client {
	t.Helper()

	f.t = t
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)

	c, err := Dial(context.Background(), &Config{
		URL:      ts.URL,
		PageSize: pageSize,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

var testLock = fnwire.Script{
	CodeHash: fnwire.Hash256{0x9b, 0xd7},
	HashType: fnwire.HashTypeType,
	Args:     []byte{1, 2, 3, 4},
}

var testUdt = fnwire.Script{
	CodeHash: fnwire.Hash256{0x50, 0xbd},
	HashType: fnwire.HashTypeData1,
	Args:     []byte{0xaa},
}

// udtData returns cell data holding amount, padded to size bytes.
func udtData(amount uint64, size int) hexutil.Bytes {
	data := make([]byte, size)
	if size >= 8 {
		binary.LittleEndian.PutUint64(data, amount)
	}

	return data
}

// TestCkbBalance checks the search key used for plain capacity and the
// handling of a null result.
func TestCkbBalance(t *testing.T) {
	t.Parallel()

	var result any = map[string]any{
		"capacity":     "0x174876e800",
		"block_hash":   fnwire.Hash256{1}.String(),
		"block_number": "0x10",
	}
	f := &fakeIndexer{
		handlers: map[string]func([]json.RawMessage) (any, *rpcError){
			"get_cells_capacity": func(p []json.RawMessage) (any,
				*rpcError) {

				return result, nil
			},
		},
	}
	c := newTestClient(t, f, 0)
	ctx := context.Background()

	balance, err := c.CkbBalance(ctx, testLock)
	require.NoError(t, err)
	require.Equal(t, fnwire.Amount(100_000_000_000), balance)

	reqs := f.reqs()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Params, 1)

	var key SearchKey
	require.NoError(t, json.Unmarshal(reqs[0].Params[0], &key))
	require.True(t, testLock.Equal(key.Script))
	require.Equal(t, ScriptTypeLock, key.ScriptType)
	require.Equal(t, SearchModeExact, key.ScriptSearchMode)
	require.NotNil(t, key.Filter)
	require.Nil(t, key.Filter.Script)
	require.Equal(t, NewRange(0, 1), key.Filter.ScriptLenRange)
	require.Equal(t, NewRange(0, 1), key.Filter.OutputDataLenRange)

	// No cells at all is reported as null and means zero.
	f.mu.Lock()
	result = nil
	f.mu.Unlock()

	balance, err = c.CkbBalance(ctx, testLock)
	require.NoError(t, err)
	require.Zero(t, balance)
}

// TestUdtBalance checks that the amounts of every page of UDT cells are
// summed up.
func TestUdtBalance(t *testing.T) {
	t.Parallel()

	cells := []Cell{
		{OutputData: udtData(100, 16)},
		{OutputData: udtData(250, 32)},
		{OutputData: udtData(7, 10)},
		{OutputData: udtData(1000, 16)},
		{OutputData: udtData(1, 16)},
	}

	f := &fakeIndexer{}
	f.handlers = map[string]func([]json.RawMessage) (any, *rpcError){
		"get_cells": func(p []json.RawMessage) (any, *rpcError) {
			badParams := &rpcError{Code: -32602, Message: "params"}
			if len(p) != 4 {
				return nil, badParams
			}

			var limit hexutil.Uint
			if err := json.Unmarshal(p[2], &limit); err != nil {
				return nil, badParams
			}

			start := 0
			if string(p[3]) != "null" {
				var after hexutil.Bytes
				err := json.Unmarshal(p[3], &after)
				if err != nil || len(after) != 1 {
					return nil, badParams
				}
				start = int(after[0]) + 1
			}
			end := min(start+int(limit), len(cells))

			page := &CellsPage{Objects: cells[start:end]}
			if end > start {
				page.LastCursor = hexutil.Bytes{byte(end - 1)}
			}

			return page, nil
		},
	}
	c := newTestClient(t, f, 2)

	balance, err := c.UdtBalance(context.Background(), testLock, testUdt)
	require.NoError(t, err)
	require.Equal(t, fnwire.Amount(100+250+1000+1), balance)

	// Five cells in pages of two.
	reqs := f.reqs()
	require.Len(t, reqs, 3)

	var key SearchKey
	require.NoError(t, json.Unmarshal(reqs[0].Params[0], &key))
	require.NotNil(t, key.Filter.Script)
	require.True(t, testUdt.Equal(*key.Filter.Script))
	require.Equal(
		t, NewRange(udtAmountSize, 1<<64-1), key.Filter.OutputDataLenRange,
	)
	require.NotNil(t, key.WithData)
	require.True(t, *key.WithData)

	var order Order
	require.NoError(t, json.Unmarshal(reqs[0].Params[1], &order))
	require.Equal(t, OrderDesc, order)
}

// TestRPCError checks that node errors are returned with the method name.
func TestRPCError(t *testing.T) {
	t.Parallel()

	f := &fakeIndexer{
		handlers: map[string]func([]json.RawMessage) (any, *rpcError){
			"get_cells_capacity": func([]json.RawMessage) (any,
				*rpcError) {

				return nil, &rpcError{Code: -1, Message: "boom"}
			},
		},
	}
	c := newTestClient(t, f, 0)

	_, err := c.CkbBalance(context.Background(), testLock)
	require.ErrorContains(t, err, "get_cells_capacity")
	require.ErrorContains(t, err, "boom")

	// get_indexer_tip has no handler at all.
	_, err = c.IndexerTip(context.Background())
	require.ErrorContains(t, err, "get_indexer_tip")
}
