package fnwire

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashSize of array used to store hashes.
const HashSize = 32

// ZeroHash is a predefined hash containing all zeroes.
var ZeroHash Hash256

// Hash256 is a 32 byte blake2b digest as used by CKB and Fiber. Channel ids,
// temporary channel ids and script code hashes are all of this type. On the
// wire it is a 0x prefixed hex string.
type Hash256 [HashSize]byte

// String returns the hash as a 0x prefixed hexadecimal string.
func (h Hash256) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash256) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Both the JSON-RPC
// decoder and the config file decoder end up here.
func (h *Hash256) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", text, err)
	}

	hash, err := MakeHash(b)
	if err != nil {
		return err
	}
	*h = hash

	return nil
}

// MakeHash returns a new Hash256 from a byte slice. An error is returned if
// the number of bytes passed in is not HashSize.
func MakeHash(newHash []byte) (Hash256, error) {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return Hash256{}, fmt.Errorf("invalid hash length of %v, want %v",
			nhlen, HashSize)
	}

	var hash Hash256
	copy(hash[:], newHash)

	return hash, nil
}

// OutPoint is the serialized form of a CKB out point (tx hash followed by
// the little endian output index). Fiber uses it to identify the funding
// output of a channel.
type OutPoint []byte

// String returns the out point as a 0x prefixed hexadecimal string.
func (o OutPoint) String() string {
	return hexutil.Encode(o)
}

// MarshalText implements encoding.TextMarshaler.
func (o OutPoint) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *OutPoint) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid out point %q: %w", text, err)
	}
	*o = b

	return nil
}
