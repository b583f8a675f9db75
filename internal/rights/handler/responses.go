package handler

import (
	"time"

	"claimsreg/internal/catalog"
	"claimsreg/internal/rights/models"
	"claimsreg/pkg/domain"
)

type IssuerResponse struct {
	Issuer        domain.Address `json:"issuer"`
	Owner         domain.Address `json:"owner"`
	Trusted       bool           `json:"trusted"`
	TrustedAt     time.Time      `json:"trusted_at"`
	ManagedClaims []catalog.Ref  `json:"managed_claims"`
}

type IssuerListResponse struct {
	Issuers []*IssuerResponse `json:"issuers"`
}

type ManagedClaimsResponse struct {
	Issuer domain.Address `json:"issuer"`
	Claims []catalog.Ref  `json:"claims"`
}

type AuthorizedIssuersResponse struct {
	Claim   catalog.Ref      `json:"claim"`
	Issuers []domain.Address `json:"issuers"`
}

type AuthorizationResponse struct {
	Issuer     domain.Address `json:"issuer,omitzero"`
	Owner      domain.Address `json:"owner,omitzero"`
	Claim      catalog.Ref    `json:"claim"`
	Authorized bool           `json:"authorized"`
}

func toIssuerResponse(iss *models.Issuer) *IssuerResponse {
	return &IssuerResponse{
		Issuer:        iss.Address,
		Owner:         iss.Owner,
		Trusted:       true,
		TrustedAt:     iss.TrustedAt,
		ManagedClaims: catalog.RefsOf(iss.ManagedClaims),
	}
}
