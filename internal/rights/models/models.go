package models

import (
	"bytes"
	"slices"
	"time"

	"claimsreg/pkg/domain"
)

// Issuer is a trusted attestation provider and the key that signs for it.
type Issuer struct {
	Address       domain.Address
	Owner         domain.Address
	TrustedAt     time.Time
	ManagedClaims []domain.ClaimType
}

// Manages reports whether the issuer holds the right to attest claimType.
func (i *Issuer) Manages(claimType domain.ClaimType) bool {
	return slices.Contains(i.ManagedClaims, claimType)
}

// SortAddresses orders addresses by their hex form for stable listings.
func SortAddresses(addrs []domain.Address) {
	slices.SortFunc(addrs, func(a, b domain.Address) int {
		return bytes.Compare(a[:], b[:])
	})
}

// SortClaimTypes orders claim types by their hex form for stable listings.
func SortClaimTypes(claims []domain.ClaimType) {
	slices.SortFunc(claims, func(a, b domain.ClaimType) int {
		return bytes.Compare(a[:], b[:])
	})
}
