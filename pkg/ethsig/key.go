package ethsig

import (
	"github.com/btcsuite/btcd/btcec"

	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
)

// Key is a secp256k1 signing key held by an issuer owner.
type Key struct {
	priv *btcec.PrivateKey
}

// GenerateKey creates a fresh random key.
func GenerateKey() (*Key, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate key")
	}
	return &Key{priv: priv}, nil
}

// KeyFromHex loads a 32-byte private scalar from hex.
func KeyFromHex(s string) (*Key, error) {
	raw, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key must be 32 bytes")
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	if priv.D.Sign() == 0 || priv.D.Cmp(btcec.S256().N) >= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key out of range")
	}
	return &Key{priv: priv}, nil
}

// Address is the owner identity controlled by this key.
func (k *Key) Address() domain.Address {
	return PubkeyToAddress(k.priv.PubKey())
}

// Hex returns the 0x-prefixed private scalar.
func (k *Key) Hex() string {
	return EncodeHex(k.priv.Serialize())
}

// SignHash produces an r ‖ s ‖ v signature over hash with v in {27, 28}.
func (k *Key) SignHash(hash [32]byte) ([]byte, error) {
	compact, err := btcec.SignCompact(btcec.S256(), k.priv, hash[:], false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign hash")
	}
	// btcec lays out compact signatures as v ‖ r ‖ s.
	out := make([]byte, 0, SignatureLength)
	out = append(out, compact[1:]...)
	return append(out, compact[0]), nil
}

// SignClaim signs the attestation message for (subject, claim).
func (k *Key) SignClaim(subject domain.Address, claim domain.ClaimType) ([]byte, error) {
	return k.SignHash(ClaimHash(subject, claim))
}
