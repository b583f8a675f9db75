package handler

import (
	"claimsreg/internal/catalog"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
)

type RegisterStoreRequest struct {
	Claim    string `json:"claim"`
	StoreRef string `json:"store_ref"`

	claimType domain.ClaimType
	storeRef  domain.Address
}

func (r *RegisterStoreRequest) Validate() error {
	c, err := catalog.Parse(r.Claim)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "claim must be a catalog name or 0x-prefixed 32-byte identifier")
	}
	ref, err := domain.ParseAddress(r.StoreRef)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "store_ref must be a 0x-prefixed 20-byte address")
	}
	r.claimType, r.storeRef = c, ref
	return nil
}
