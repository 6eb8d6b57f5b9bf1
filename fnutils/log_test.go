package fnutils

import (
	"testing"

	"github.com/nervosnetwork/fnpilot/fnwire"
	"github.com/stretchr/testify/require"
)

// TestLogClosure makes sure closures are only evaluated when printed.
func TestLogClosure(t *testing.T) {
	t.Parallel()

	var calls int
	c := NewLogClosure(func() string {
		calls++
		return "expensive"
	})
	require.Zero(t, calls)
	require.Equal(t, "expensive", c.String())
	require.Equal(t, 1, calls)

	require.Contains(t, SpewLogClosure(fnwire.Amount(7)).String(), "7")
}

// TestLogAttrs checks the structured attributes for node identities.
func TestLogAttrs(t *testing.T) {
	t.Parallel()

	attr := LogPeer("peer", fnwire.PeerID("QmPeer"))
	require.Equal(t, "peer", attr.Key)
	require.Equal(t, "QmPeer", attr.Value.String())

	var pub fnwire.Pubkey
	pub[0] = 0x02
	require.Equal(t, "node", LogPubkey("node", pub).Key)
}
