package handler

import (
	"claimsreg/internal/catalog"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
)

type AddIssuerRequest struct {
	Issuer string `json:"issuer"`
	Owner  string `json:"owner"`

	issuer domain.Address
	owner  domain.Address
}

func (r *AddIssuerRequest) Validate() error {
	var err error
	if r.issuer, err = domain.ParseAddress(r.Issuer); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer must be a 0x-prefixed 20-byte address")
	}
	if r.owner, err = domain.ParseAddress(r.Owner); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "owner must be a 0x-prefixed 20-byte address")
	}
	return nil
}

// GrantClaimRequest names the claim by catalog name or 0x identifier.
type GrantClaimRequest struct {
	Claim string `json:"claim"`

	claimType domain.ClaimType
}

func (r *GrantClaimRequest) Validate() error {
	c, err := catalog.Parse(r.Claim)
	if err != nil {
		return err
	}
	r.claimType = c
	return nil
}
