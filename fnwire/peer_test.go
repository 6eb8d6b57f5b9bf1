package fnwire

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// TestPeerIDFromPubkey checks that a derived peer id is a base58 sha256
// multihash that survives the /p2p/ multiaddr component round trip.
func TestPeerIDFromPubkey(t *testing.T) {
	t.Parallel()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	pub := NewPubkey(priv.PubKey())
	peer, err := NewPeerID(pub)
	require.NoError(t, err)
	require.NoError(t, peer.Validate())

	// SHA2-256 multihashes always start with Qm in base58.
	require.Equal(t, "Qm", peer.String()[:2])

	// The same key always maps to the same peer.
	again, err := NewPeerID(pub)
	require.NoError(t, err)
	require.Equal(t, peer, again)

	addr := MultiAddr("/ip4/127.0.0.1/tcp/8228/p2p/" + peer.String())
	fromAddr, err := addr.PeerID()
	require.NoError(t, err)
	require.Equal(t, peer, fromAddr)
}

// TestMultiAddrPeerID covers addresses that carry no usable peer id.
func TestMultiAddrPeerID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		addr MultiAddr
	}{
		{name: "garbage", addr: "not-an-address"},
		{name: "no p2p", addr: "/ip4/127.0.0.1/tcp/8228"},
		{name: "empty", addr: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.addr.PeerID()
			require.Error(t, err)
		})
	}

	require.Error(t, PeerID("nope").Validate())
}

// TestPubkeyText checks the hex forms accepted for a node key.
func TestPubkeyText(t *testing.T) {
	t.Parallel()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := NewPubkey(priv.PubKey())

	b, err := json.Marshal(pub)
	require.NoError(t, err)
	require.Len(t, b, PubkeySize*2+2)

	var decoded Pubkey
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, pub, decoded)

	var prefixed Pubkey
	require.NoError(t, prefixed.UnmarshalText([]byte("0x"+pub.String())))
	require.Equal(t, pub, prefixed)

	// A string of the right size that is not a curve point fails.
	bogus := make([]byte, PubkeySize*2)
	for i := range bogus {
		bogus[i] = '0'
	}
	require.Error(t, decoded.UnmarshalText(bogus))
}

// TestScriptEqual checks script comparison, including args.
func TestScriptEqual(t *testing.T) {
	t.Parallel()

	a := Script{
		CodeHash: Hash256{1},
		HashType: HashTypeType,
		Args:     []byte{1, 2, 3},
	}
	b := a
	b.Args = []byte{1, 2, 3}
	require.True(t, a.Equal(b))

	b.Args = []byte{1, 2}
	require.False(t, a.Equal(b))

	c := a
	c.HashType = HashTypeData1
	require.False(t, a.Equal(c))

	require.NoError(t, HashTypeData2.Validate())
	require.Error(t, ScriptHashType("data9").Validate())

	var h Hash256
	require.NoError(t, h.UnmarshalText([]byte(Hash256{0xab}.String())))
	require.Equal(t, Hash256{0xab}, h)
	require.Error(t, h.UnmarshalText([]byte("0xabcd")))
}
