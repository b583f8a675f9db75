package handler

import (
	"claimsreg/internal/catalog"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/ethsig"
)

// VerifyRequest asks whether subject holds claim. Signature is optional.
type VerifyRequest struct {
	Subject   string `json:"subject"`
	Claim     string `json:"claim"`
	Signature string `json:"signature,omitempty"`

	subject   domain.Address
	claimType domain.ClaimType
	signature []byte
}

func (r *VerifyRequest) Validate() error {
	subject, err := domain.ParseAddress(r.Subject)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "subject must be a 0x-prefixed 20-byte address")
	}
	claimType, err := catalog.Parse(r.Claim)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "claim must be a catalog name or 0x-prefixed 32-byte identifier")
	}
	r.subject, r.claimType = subject, claimType
	if r.Signature == "" {
		return nil
	}
	sig, err := ethsig.DecodeHex(r.Signature)
	if err != nil {
		return err
	}
	r.signature = sig
	return nil
}
