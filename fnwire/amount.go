package fnwire

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// ErrEmptyAmount is returned when an amount string holds no digits.
var ErrEmptyAmount = errors.New("empty amount")

// Amount represents a quantity of a token in its smallest unit: shannons for
// CKB, or the raw u128 unit of a UDT. Fiber transports amounts as u128 hex
// strings. Values that do not fit into 64 bits saturate at math.MaxUint64,
// which is far above any funding amount the agent ever allocates.
type Amount uint64

// MaxAmount is the largest representable amount.
const MaxAmount = Amount(math.MaxUint64)

// String returns the amount in decimal.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// MarshalText encodes the amount as a 0x prefixed hex quantity, which is
// what Fiber expects for every u128 parameter.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte("0x" + strconv.FormatUint(uint64(a), 16)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts both a 0x
// prefixed hex quantity and a plain decimal number.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v

	return nil
}

// ParseAmount parses a decimal or 0x prefixed hexadecimal amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyAmount
	}

	var (
		v   *uint256.Int
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			if len(s) == 2 {
				return 0, ErrEmptyAmount
			}
			return 0, nil
		}
		v, err = uint256.FromHex("0x" + digits)

	default:
		if strings.TrimLeft(s, "0123456789") != "" {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return AmountFromU256(v), nil
}

// AmountFromU256 converts a 256 bit integer into an Amount, saturating at
// MaxAmount.
func AmountFromU256(v *uint256.Int) Amount {
	if !v.IsUint64() {
		return MaxAmount
	}

	return Amount(v.Uint64())
}

// AmountFromLE128 decodes the little endian u128 stored in the first 16
// bytes of a UDT cell's data. Short input is an error.
func AmountFromLE128(data []byte) (Amount, error) {
	if len(data) < 16 {
		return 0, fmt.Errorf("udt amount needs 16 bytes, got %d",
			len(data))
	}

	// uint256 only reads big endian, so flip the 16 bytes first.
	var be [16]byte
	for i := 0; i < 16; i++ {
		be[i] = data[15-i]
	}

	return AmountFromU256(new(uint256.Int).SetBytes(be[:])), nil
}

// AddSaturating returns a + b, or MaxAmount on overflow.
func (a Amount) AddSaturating(b Amount) Amount {
	if a > MaxAmount-b {
		return MaxAmount
	}

	return a + b
}
