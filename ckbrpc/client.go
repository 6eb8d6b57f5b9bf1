package ckbrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

const (
	// DefaultPageSize is the number of cells requested per get_cells page.
	DefaultPageSize = 1000

	// udtAmountSize is the size of the little endian u128 amount that
	// starts the data of every UDT cell.
	udtAmountSize = 16

	// maxPages bounds a single balance query.
	maxPages = 10_000
)

// Config holds the parameters of a CKB indexer RPC connection.
type Config struct {
	// URL is the CKB node's JSON-RPC endpoint with the indexer module
	// enabled.
	URL string

	// RequestTimeout bounds every single call. Zero means no bound
	// besides the caller's context.
	RequestTimeout time.Duration

	// PageSize is the number of cells requested per get_cells page.
	PageSize uint32
}

// Client queries the CKB indexer for the balances available to a lock
// script.
type Client struct {
	cfg Config
	rpc *rpc.Client
}

// Dial connects to the CKB node described by cfg.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	c, err := rpc.DialOptions(ctx, cfg.URL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to dial ckb rpc %v: %w", cfg.URL,
			err)
	}

	return NewClient(c, cfg), nil
}

// NewClient wraps an established RPC connection.
func NewClient(c *rpc.Client, cfg *Config) *Client {
	conf := *cfg
	if conf.PageSize == 0 {
		conf.PageSize = DefaultPageSize
	}

	return &Client{
		cfg: conf,
		rpc: c,
	}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result any, method string,
	args ...any) error {

	start := time.Now()
	err := c.rpc.CallContext(ctx, result, method, args...)
	log.Tracef("Call %v took %v, err=%v", method, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%v: %w", method, err)
	}

	return nil
}

// IndexerTip calls get_indexer_tip.
func (c *Client) IndexerTip(ctx context.Context) (*IndexerTip, error) {
	var tip *IndexerTip
	if err := c.call(ctx, &tip, "get_indexer_tip"); err != nil {
		return nil, err
	}
	if tip == nil {
		return nil, errors.New("indexer has no tip yet")
	}

	return tip, nil
}

// GetCellsCapacity calls get_cells_capacity. A node without matching cells
// answers null, which is returned as a zero capacity.
func (c *Client) GetCellsCapacity(ctx context.Context,
	key *SearchKey) (fnwire.Amount, error) {

	var res *CellsCapacity
	err := c.call(ctx, &res, "get_cells_capacity", key)
	switch {
	case errors.Is(err, rpc.ErrNoResult):
		return 0, nil

	case err != nil:
		return 0, err

	case res == nil:
		return 0, nil
	}

	return res.Capacity, nil
}

// GetCells calls get_cells for a single page. An empty cursor requests the
// first page.
func (c *Client) GetCells(ctx context.Context, key *SearchKey, order Order,
	limit uint32, after hexutil.Bytes) (*CellsPage, error) {

	var cursor any
	if len(after) > 0 {
		cursor = after
	}

	var page CellsPage
	err := c.call(
		ctx, &page, "get_cells", key, order, hexutil.Uint(limit), cursor,
	)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

// ForEachCell calls cb for every cell matching key, fetching as many pages
// as needed.
func (c *Client) ForEachCell(ctx context.Context, key *SearchKey,
	cb func(*Cell) error) error {

	var after hexutil.Bytes
	for page := 0; page < maxPages; page++ {
		res, err := c.GetCells(ctx, key, OrderDesc, c.cfg.PageSize, after)
		if err != nil {
			return err
		}

		for i := range res.Objects {
			if err := cb(&res.Objects[i]); err != nil {
				return err
			}
		}

		switch {
		case len(res.Objects) < int(c.cfg.PageSize):
			return nil

		case len(res.LastCursor) == 0:
			return nil

		case bytes.Equal(res.LastCursor, after):
			log.Warnf("get_cells returned the same cursor twice, " +
				"stopping")
			return nil
		}

		after = res.LastCursor
	}

	return fmt.Errorf("get_cells: more than %d pages", maxPages)
}

// CkbBalance returns the capacity of the plain cells guarded by lock: cells
// with neither a type script nor data, which are the ones that can fund a
// channel.
func (c *Client) CkbBalance(ctx context.Context,
	lock fnwire.Script) (fnwire.Amount, error) {

	key := &SearchKey{
		Script:           lock,
		ScriptType:       ScriptTypeLock,
		ScriptSearchMode: SearchModeExact,
		Filter: &SearchKeyFilter{
			ScriptLenRange:     NewRange(0, 1),
			OutputDataLenRange: NewRange(0, 1),
		},
	}

	return c.GetCellsCapacity(ctx, key)
}

// UdtBalance returns the amount of the UDT identified by udt held in cells
// guarded by lock. Cells whose data is too short to carry an amount are
// skipped.
func (c *Client) UdtBalance(ctx context.Context, lock,
	udt fnwire.Script) (fnwire.Amount, error) {

	withData := true
	key := &SearchKey{
		Script:           lock,
		ScriptType:       ScriptTypeLock,
		ScriptSearchMode: SearchModeExact,
		Filter: &SearchKeyFilter{
			Script: &udt,
			OutputDataLenRange: NewRange(
				udtAmountSize, math.MaxUint64,
			),
		},
		WithData: &withData,
	}

	var (
		total fnwire.Amount
		cells int
	)
	err := c.ForEachCell(ctx, key, func(cell *Cell) error {
		amt, err := fnwire.AmountFromLE128(cell.OutputData)
		if err != nil {
			log.Debugf("Skipping udt cell %v:%d: %v",
				cell.OutPoint.TxHash, cell.OutPoint.Index, err)
			return nil
		}

		total = total.AddSaturating(amt)
		cells++

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Debugf("UDT %v balance of %v: %v in %d cells", udt, lock, total,
		cells)

	return total, nil
}
