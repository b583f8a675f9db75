package handler

import (
	"claimsreg/internal/catalog"
	"claimsreg/internal/verifier/service"
	"claimsreg/pkg/domain"
)

type VerifyResponse struct {
	Subject  domain.Address  `json:"subject"`
	Claim    catalog.Ref     `json:"claim"`
	Verified bool            `json:"verified"`
	Outcome  service.Outcome `json:"outcome"`
	Signer   *domain.Address `json:"signer"`
	Issuer   *domain.Address `json:"issuer"`
}

func toVerifyResponse(r *service.Result) *VerifyResponse {
	resp := &VerifyResponse{
		Subject:  r.Subject,
		Claim:    catalog.RefOf(r.ClaimType),
		Verified: r.Verified,
		Outcome:  r.Outcome,
	}
	if !r.Signer.IsNil() {
		signer := r.Signer
		resp.Signer = &signer
	}
	if !r.Issuer.IsNil() {
		issuer := r.Issuer
		resp.Issuer = &issuer
	}
	return resp
}
