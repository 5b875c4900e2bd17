package domain

import (
	"encoding/hex"
	"fmt"
)

// AddressLen is the byte length of a derived account address.
const AddressLen = 32

// Address is a 32-byte account address. Market records, vaults, token
// classes, and caller identities all live in the same address space.
type Address [AddressLen]byte

// ZeroAddress is the all-zero address. It is never a valid derivation result.
var ZeroAddress Address

// ParseAddress decodes a 64-character hex string (with or without a 0x
// prefix) into an Address.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var a Address
	if hex.DecodedLen(len(s)) != AddressLen {
		return Address{}, fmt.Errorf("domain: address %q: want %d bytes", s, AddressLen)
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return Address{}, fmt.Errorf("domain: address %q: %w", s, err)
	}
	return a, nil
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the lowercase hex encoding of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler so addresses serialize as
// hex strings in JSON payloads and map keys.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
