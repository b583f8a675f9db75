// Package models holds the attestation record shared by the claim store backends.
package models

import (
	"time"

	"claimsreg/internal/catalog"
	"claimsreg/pkg/domain"
	"claimsreg/pkg/ethsig"
)

// SignatureLength is the size of a recoverable secp256k1 signature: r ‖ s ‖ v.
const SignatureLength = ethsig.SignatureLength

// Attestation is a stored signature vouching that Subject holds ClaimType.
// StoreRef and Subject form the key.
type Attestation struct {
	StoreRef  domain.Address   `json:"store_ref"`
	Subject   domain.Address   `json:"subject"`
	ClaimType domain.ClaimType `json:"claim_type"`
	Issuer    domain.Address   `json:"issuer"`
	Signature []byte           `json:"signature"`
	IssuedAt  time.Time        `json:"issued_at"`
}

// Clone returns a deep copy so callers never share the signature buffer.
func (a *Attestation) Clone() *Attestation {
	if a == nil {
		return nil
	}
	out := *a
	out.Signature = append([]byte(nil), a.Signature...)
	return &out
}

// Key identifies an attestation within its backend.
type Key struct {
	StoreRef domain.Address
	Subject  domain.Address
}

func (a *Attestation) Key() Key {
	return Key{StoreRef: a.StoreRef, Subject: a.Subject}
}

// View is the JSON form of an attestation served over HTTP.
type View struct {
	Subject   domain.Address `json:"subject"`
	Claim     catalog.Ref    `json:"claim"`
	Issuer    domain.Address `json:"issuer"`
	StoreRef  domain.Address `json:"store_ref"`
	Signature string         `json:"signature"`
	IssuedAt  time.Time      `json:"issued_at"`
}

func (a *Attestation) View() *View {
	return &View{
		Subject:   a.Subject,
		Claim:     catalog.RefOf(a.ClaimType),
		Issuer:    a.Issuer,
		StoreRef:  a.StoreRef,
		Signature: ethsig.EncodeHex(a.Signature),
		IssuedAt:  a.IssuedAt,
	}
}
