package fnwire

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/multiformats/go-multihash"
)

// PubkeySize is the length of a compressed secp256k1 public key.
const PubkeySize = 33

// Pubkey is the serialized compressed identity key of a Fiber node.
type Pubkey [PubkeySize]byte

// NewPubkey creates a new Pubkey from a parsed public key.
func NewPubkey(pub *btcec.PublicKey) Pubkey {
	var p Pubkey
	copy(p[:], pub.SerializeCompressed())

	return p
}

// String returns the key as plain hex, the form Fiber uses on the wire.
func (p Pubkey) String() string {
	return strings.TrimPrefix(hexutil.Encode(p[:]), "0x")
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The hex string may or
// may not carry a 0x prefix, and must be a valid point on the curve.
func (p *Pubkey) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid pubkey %q: %w", text, err)
	}

	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return fmt.Errorf("invalid pubkey %q: %w", text, err)
	}
	*p = NewPubkey(pub)

	return nil
}

// PeerID is the transport identity of a Fiber node: the base58 encoded
// SHA2-256 multihash of its compressed public key.
type PeerID string

// NewPeerID derives the peer id of the given node key.
func NewPeerID(pub Pubkey) (PeerID, error) {
	h, err := multihash.Sum(pub[:], multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("unable to hash pubkey: %w", err)
	}

	return PeerID(h.B58String()), nil
}

// Validate checks that the peer id decodes to a multihash.
func (p PeerID) Validate() error {
	if _, err := multihash.FromB58String(string(p)); err != nil {
		return fmt.Errorf("invalid peer id %q: %w", string(p), err)
	}

	return nil
}

// String returns the base58 form of the peer id.
func (p PeerID) String() string {
	return string(p)
}

// MultiAddr is a Fiber node address in multiaddr text form, for example
// /ip4/127.0.0.1/tcp/8228/p2p/QmXen3eUHhywmutEzydCsW4hXBoeVmdET2FJvMX69XJ1Eo.
type MultiAddr string

// PeerID extracts the peer id carried in the /p2p/ component.
func (m MultiAddr) PeerID() (PeerID, error) {
	addr, err := ma.NewMultiaddr(string(m))
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", string(m), err)
	}

	id, err := addr.ValueForProtocol(ma.P_P2P)
	if err != nil {
		return "", fmt.Errorf("address %q has no peer id: %w",
			string(m), err)
	}

	return PeerID(id), nil
}

// String returns the address text.
func (m MultiAddr) String() string {
	return string(m)
}
