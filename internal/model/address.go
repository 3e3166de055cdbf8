// Package model holds the uniform record schema shared by every extractor
// and loader: account addresses, transaction records, exchange orders, and
// the ledger snapshots derived from them.
package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the width of an on-chain account identifier in bytes.
// Legacy V5 addresses are zero-extended to this width on ingestion; see
// NormalizeLegacyAddress.
const AddressLength = 16

// Address is a fixed-width account identifier. The zero value is the all-
// zero "core" address.
type Address [AddressLength]byte

// ParseAddress decodes a hex string, with or without a leading "0x", in any
// case, zero-padding on the left if the input is shorter than AddressLength
// hex bytes (mirrors the lenient parsing whitepages import requires).
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return a, fmt.Errorf("model: parse address %q: %w", s, err)
	}
	if len(raw) > AddressLength {
		raw = raw[len(raw)-AddressLength:]
	}
	copy(a[AddressLength-len(raw):], raw)
	return a, nil
}

// NormalizeLegacyAddress widens a legacy V5 address by round-tripping
// through its hex-literal form rather than copying raw bytes, so that any
// embedded null-byte padding differences between eras are normalized away.
func NormalizeLegacyAddress(legacy []byte) (Address, error) {
	return ParseAddress(hex.EncodeToString(legacy))
}

// String renders the address as a "0x"-prefixed lowercase hex literal, the
// canonical form used as a graph join key.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether this is the all-zero core address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalJSON renders the address in its canonical hex-literal form, so
// checkpointed matching state and other JSON artifacts stay human-readable.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses the canonical hex-literal form written by MarshalJSON.
func (a *Address) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseAddress(s)
	if err != nil {
		return fmt.Errorf("model: unmarshal address: %w", err)
	}
	*a = parsed
	return nil
}
