// Package domain provides fixed-width identifiers so issuer, owner, subject, and
// store addresses cannot be mixed up with claim type hashes at compile time.
package domain

import (
	"encoding/hex"
	"strings"

	dErrors "claimsreg/pkg/domain-errors"
)

const (
	// AddressLength is the byte width of issuer, owner, subject, and store identities.
	AddressLength = 20
	// ClaimTypeLength is the byte width of a claim type identifier.
	ClaimTypeLength = 32
)

// Address identifies an issuer, an owner key, a subject, or a claim store.
// The zero value is the null identity.
type Address [AddressLength]byte

// ClaimType identifies an assertion kind. Values come from the claim catalog.
type ClaimType [ClaimTypeLength]byte

// Parse functions - use at trust boundaries (handlers, CLI input).

// ParseAddress decodes a 0x-prefixed 40 character hex string. The null address
// parses successfully; services decide whether null is acceptable.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeFixedHex(s, a[:], "address"); err != nil {
		return Address{}, err
	}
	return a, nil
}

// ParseClaimType decodes a 0x-prefixed 64 character hex string.
func ParseClaimType(s string) (ClaimType, error) {
	var c ClaimType
	if err := decodeFixedHex(s, c[:], "claim type"); err != nil {
		return ClaimType{}, err
	}
	return c, nil
}

// AddressFromBytes copies b into an Address. b must be exactly 20 bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, dErrors.New(dErrors.CodeInvalidInput, "address must be 20 bytes")
	}
	copy(a[:], b)
	return a, nil
}

// String methods - canonical lowercase 0x form for logs, keys, and JSON.

func (a Address) String() string   { return "0x" + hex.EncodeToString(a[:]) }
func (c ClaimType) String() string { return "0x" + hex.EncodeToString(c[:]) }

// IsNil checks - used for service-layer validation.

func (a Address) IsNil() bool   { return a == Address{} }
func (c ClaimType) IsNil() bool { return c == ClaimType{} }

// Bytes returns a copy of the raw identifier bytes.
func (a Address) Bytes() []byte   { return append([]byte(nil), a[:]...) }
func (c ClaimType) Bytes() []byte { return append([]byte(nil), c[:]...) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (c ClaimType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClaimType) UnmarshalText(text []byte) error {
	parsed, err := ParseClaimType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// decodeFixedHex is the shared validation logic for fixed-width identifiers.
func decodeFixedHex(s string, dst []byte, label string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return dErrors.New(dErrors.CodeInvalidInput, label+" must be 0x-prefixed hex")
	}
	s = s[2:]
	if len(s) != 2*len(dst) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" length")
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return nil
}
