package fnrpc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"golang.org/x/time/rate"
)

const (
	// DefaultPageSize is the number of graph entries requested per page.
	DefaultPageSize = 500

	// maxPages bounds the number of pages fetched in one listing, in case
	// a node keeps handing out cursors.
	maxPages = 10_000
)

// Config holds the parameters of a Fiber RPC connection.
type Config struct {
	// URL is the Fiber node's JSON-RPC endpoint.
	URL string

	// RequestTimeout bounds every single call. Zero means no bound
	// besides the caller's context.
	RequestTimeout time.Duration

	// MaxRPS limits the calls per second sent to the node. Zero or
	// less disables the limit.
	MaxRPS float64

	// Burst is the number of calls allowed above MaxRPS in a burst.
	Burst int

	// PageSize is the number of entries requested per graph page.
	PageSize uint64
}

// Client is a JSON-RPC client for the subset of the Fiber node API the
// autopilot needs.
type Client struct {
	cfg     Config
	rpc     *rpc.Client
	limiter *rate.Limiter
}

// Dial connects to the Fiber node described by cfg.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	c, err := rpc.DialOptions(ctx, cfg.URL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to dial fiber rpc %v: %w",
			cfg.URL, err)
	}

	return NewClient(c, cfg), nil
}

// NewClient wraps an established RPC connection.
func NewClient(c *rpc.Client, cfg *Config) *Client {
	limit := rate.Inf
	if cfg.MaxRPS > 0 {
		limit = rate.Limit(cfg.MaxRPS)
	}
	burst := max(cfg.Burst, 1)

	conf := *cfg
	if conf.PageSize == 0 {
		conf.PageSize = DefaultPageSize
	}

	return &Client{
		cfg:     conf,
		rpc:     c,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// call waits for the rate limiter and performs a single call.
func (c *Client) call(ctx context.Context, result any, method string,
	args ...any) error {

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := c.rpc.CallContext(ctx, result, method, args...)
	log.Tracef("Call %v took %v, err=%v", method, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%v: %w", method, err)
	}

	return nil
}

// NodeInfo calls node_info.
func (c *Client) NodeInfo(ctx context.Context) (*NodeInfoResult, error) {
	var res NodeInfoResult
	if err := c.call(ctx, &res, "node_info"); err != nil {
		return nil, err
	}

	return &res, nil
}

// GraphNodes calls graph_nodes until every page has been fetched.
func (c *Client) GraphNodes(ctx context.Context) ([]NodeInfo, error) {
	var nodes []NodeInfo
	err := c.paginate(ctx, "graph_nodes", func(p *PageParams) (
		int, hexutil.Bytes, error) {

		var res GraphNodesResult
		if err := c.call(ctx, &res, "graph_nodes", p); err != nil {
			return 0, nil, err
		}
		nodes = append(nodes, res.Nodes...)

		return len(res.Nodes), res.LastCursor, nil
	})
	if err != nil {
		return nil, err
	}

	return nodes, nil
}

// GraphChannels calls graph_channels until every page has been fetched.
func (c *Client) GraphChannels(ctx context.Context) ([]ChannelInfo, error) {
	var channels []ChannelInfo
	err := c.paginate(ctx, "graph_channels", func(p *PageParams) (
		int, hexutil.Bytes, error) {

		var res GraphChannelsResult
		if err := c.call(ctx, &res, "graph_channels", p); err != nil {
			return 0, nil, err
		}
		channels = append(channels, res.Channels...)

		return len(res.Channels), res.LastCursor, nil
	})
	if err != nil {
		return nil, err
	}

	return channels, nil
}

// paginate calls fetch with advancing cursors until a short or empty page
// is returned, or the cursor stops moving.
func (c *Client) paginate(ctx context.Context, method string,
	fetch func(*PageParams) (int, hexutil.Bytes, error)) error {

	limit := hexutil.Uint64(c.cfg.PageSize)
	params := &PageParams{
		Limit: &limit,
	}

	for page := 0; page < maxPages; page++ {
		n, cursor, err := fetch(params)
		if err != nil {
			return err
		}

		log.Debugf("Fetched page %d of %v with %d entries", page, method,
			n)

		switch {
		case uint64(n) < c.cfg.PageSize:
			return nil

		case len(cursor) == 0:
			return nil

		case bytes.Equal(cursor, params.After):
			log.Warnf("%v returned the same cursor twice, stopping",
				method)
			return nil
		}

		params.After = cursor
	}

	return fmt.Errorf("%v: more than %d pages", method, maxPages)
}

// ListChannels calls list_channels for the open channels of the node.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	includeClosed := false
	params := &ListChannelsParams{
		IncludeClosed: &includeClosed,
	}

	var res ListChannelsResult
	if err := c.call(ctx, &res, "list_channels", params); err != nil {
		return nil, err
	}

	return res.Channels, nil
}

// ConnectPeer calls connect_peer, asking the node to remember the address.
func (c *Client) ConnectPeer(ctx context.Context, addr fnwire.MultiAddr) error {
	save := true
	params := &ConnectPeerParams{
		Address: addr,
		Save:    &save,
	}

	return c.call(ctx, nil, "connect_peer", params)
}

// OpenChannel calls open_channel and returns the temporary channel id.
func (c *Client) OpenChannel(ctx context.Context,
	params *OpenChannelParams) (fnwire.Hash256, error) {

	var res OpenChannelResult
	if err := c.call(ctx, &res, "open_channel", params); err != nil {
		return fnwire.ZeroHash, err
	}

	return res.TemporaryChannelID, nil
}
