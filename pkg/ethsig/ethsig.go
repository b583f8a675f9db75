// Package ethsig implements the attestation signature scheme: a subject and claim
// type are hashed with Keccak-256, wrapped in the personal-message prefix, and
// signed with a recoverable secp256k1 signature laid out as r ‖ s ‖ v.
//
// The prefix keeps attestation signatures from being replayed as generic message
// signatures and the other way round.
package ethsig

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/sha3"

	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
)

const (
	// SignatureLength is the size of an r ‖ s ‖ v recoverable signature.
	SignatureLength = 65

	personalPrefix = "\x19Ethereum Signed Message:\n"
)

var secp256k1HalfOrder = new(big.Int).Rsh(btcec.S256().N, 1)

// Keccak256 hashes the concatenation of data with legacy Keccak-256.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = h.Write(b) //nolint:errcheck // hash writes never fail
	}
	return h.Sum(nil)
}

// ClaimMessage is subject ‖ claimType. Both are fixed width so no delimiter is needed.
func ClaimMessage(subject domain.Address, claim domain.ClaimType) []byte {
	msg := make([]byte, 0, domain.AddressLength+domain.ClaimTypeLength)
	msg = append(msg, subject[:]...)
	return append(msg, claim[:]...)
}

// PersonalHash applies the personal-message prefix to msg and hashes the result.
func PersonalHash(msg []byte) [32]byte {
	var out [32]byte
	copy(out[:], Keccak256([]byte(personalPrefix+strconv.Itoa(len(msg))), msg))
	return out
}

// ClaimHash is the digest an issuer owner signs for (subject, claim).
func ClaimHash(subject domain.Address, claim domain.ClaimType) [32]byte {
	return PersonalHash(Keccak256(ClaimMessage(subject, claim)))
}

// Signature is a parsed, normalized recoverable signature.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// Parse validates a raw 65-byte signature. A recovery id below 27 is shifted by
// 27; anything outside {27, 28} afterwards is rejected, as is an s value in the
// upper half of the curve order.
func Parse(raw []byte) (Signature, error) {
	var sig Signature
	if len(raw) != SignatureLength {
		return sig, dErrors.New(dErrors.CodeMalformedSignature, "signature must be 65 bytes")
	}
	copy(sig.R[:], raw[:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64]
	if sig.V < 27 {
		sig.V += 27
	}
	if sig.V != 27 && sig.V != 28 {
		return Signature{}, dErrors.New(dErrors.CodeMalformedSignature, "invalid signature recovery id")
	}
	if new(big.Int).SetBytes(sig.S[:]).Cmp(secp256k1HalfOrder) > 0 {
		return Signature{}, dErrors.New(dErrors.CodeMalformedSignature, "signature s value is not canonical")
	}
	return sig, nil
}

// Bytes encodes the signature as r ‖ s ‖ v.
func (s Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureLength)
	out = append(out, s.R[:]...)
	out = append(out, s.S[:]...)
	return append(out, s.V)
}

// Recover returns the address whose key produced raw over hash.
func Recover(hash [32]byte, raw []byte) (domain.Address, error) {
	sig, err := Parse(raw)
	if err != nil {
		return domain.Address{}, err
	}
	compact := make([]byte, 0, SignatureLength)
	compact = append(compact, sig.V)
	compact = append(compact, sig.R[:]...)
	compact = append(compact, sig.S[:]...)

	pub, _, err := btcec.RecoverCompact(btcec.S256(), compact, hash[:])
	if err != nil {
		return domain.Address{}, dErrors.Wrap(err, dErrors.CodeMalformedSignature, "signature recovery failed")
	}
	return PubkeyToAddress(pub), nil
}

// RecoverClaimSigner recovers the signer of an attestation for (subject, claim).
func RecoverClaimSigner(subject domain.Address, claim domain.ClaimType, raw []byte) (domain.Address, error) {
	return Recover(ClaimHash(subject, claim), raw)
}

// PubkeyToAddress derives the 20-byte identity of a public key: the last 20 bytes
// of Keccak-256 over the uncompressed point without its 0x04 tag.
func PubkeyToAddress(pub *btcec.PublicKey) domain.Address {
	var a domain.Address
	copy(a[:], Keccak256(pub.SerializeUncompressed()[1:])[12:])
	return a
}

// DecodeHex decodes optionally 0x-prefixed hex. Length is not checked here so that
// signature width errors surface as malformed signatures, not input errors.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid hex encoding")
	}
	return b, nil
}

// EncodeHex returns the 0x-prefixed lowercase hex form of b.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
