package handler

import (
	"claimsreg/internal/catalog"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/ethsig"
)

// IssueRequest carries a signature the issuer owner computed over
// (subject, claim). Signature width is checked by the store so that a short
// signature surfaces as malformed rather than as bad input.
type IssueRequest struct {
	Subject   string `json:"subject"`
	Claim     string `json:"claim"`
	Signature string `json:"signature"`

	subject   domain.Address
	claimType domain.ClaimType
	signature []byte
}

func (r *IssueRequest) Validate() error {
	subject, err := domain.ParseAddress(r.Subject)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "subject must be a 0x-prefixed 20-byte address")
	}
	claimType, err := catalog.Parse(r.Claim)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "claim must be a catalog name or 0x-prefixed 32-byte identifier")
	}
	sig, err := ethsig.DecodeHex(r.Signature)
	if err != nil {
		return err
	}
	r.subject, r.claimType, r.signature = subject, claimType, sig
	return nil
}
