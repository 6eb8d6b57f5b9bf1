package fncfg

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultRequestTimeout bounds a single RPC call.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultFiberMaxRPS is the default limit of calls per second sent to
	// the Fiber node.
	DefaultFiberMaxRPS = 20

	// DefaultFiberBurst is the default number of calls allowed above the
	// rate limit in a burst.
	DefaultFiberBurst = 10
)

// Fiber holds the connection settings of the Fiber node.
//
//nolint:ll
type Fiber struct {
	URL string `long:"url" toml:"url" description:"The JSON-RPC endpoint of the Fiber node."`

	Timeout time.Duration `long:"timeout" toml:"timeout" description:"The maximum duration of a single RPC call."`

	MaxRPS float64 `long:"maxrps" toml:"max_rps" description:"The maximum number of RPC calls per second sent to the node. Zero disables the limit."`

	Burst int `long:"burst" toml:"burst" description:"The number of calls allowed above maxrps in a burst."`

	PageSize uint64 `long:"pagesize" toml:"page_size" description:"The number of graph entries requested per page."`
}

// DefaultFiber returns the default Fiber connection settings.
func DefaultFiber() *Fiber {
	return &Fiber{
		URL:     DefaultFiberURL,
		Timeout: DefaultRequestTimeout,
		MaxRPS:  DefaultFiberMaxRPS,
		Burst:   DefaultFiberBurst,
	}
}

// Validate checks the Fiber connection settings.
func (f *Fiber) Validate() error {
	if err := validateURL("fiber", f.URL); err != nil {
		return err
	}

	switch {
	case f.Timeout < 0:
		return fmt.Errorf("fiber: timeout must be non-negative, got %v",
			f.Timeout)

	case f.MaxRPS < 0:
		return fmt.Errorf("fiber: max_rps must be non-negative, got %v",
			f.MaxRPS)

	case f.Burst < 0:
		return fmt.Errorf("fiber: burst must be non-negative, got %v",
			f.Burst)
	}

	return nil
}

// Ckb holds the connection settings of the CKB node whose indexer is used
// to look up balances.
//
//nolint:ll
type Ckb struct {
	URL string `long:"url" toml:"url" description:"The JSON-RPC endpoint of the CKB node, with the indexer enabled."`

	Timeout time.Duration `long:"timeout" toml:"timeout" description:"The maximum duration of a single RPC call."`

	PageSize uint32 `long:"pagesize" toml:"page_size" description:"The number of cells requested per get_cells page."`
}

// DefaultCkb returns the default CKB connection settings.
func DefaultCkb() *Ckb {
	return &Ckb{
		URL:     DefaultCkbURL,
		Timeout: DefaultRequestTimeout,
	}
}

// Validate checks the CKB connection settings.
func (c *Ckb) Validate() error {
	if err := validateURL("ckb", c.URL); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return fmt.Errorf("ckb: timeout must be non-negative, got %v",
			c.Timeout)
	}

	return nil
}

// validateURL makes sure rawURL is an absolute http(s) or ws(s) URL.
func validateURL(name, rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%v: url must be set", name)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%v: invalid url: %w", name, err)
	}

	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%v: unsupported url scheme %q", name,
			u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%v: url %q has no host", name, rawURL)
	}

	return nil
}
