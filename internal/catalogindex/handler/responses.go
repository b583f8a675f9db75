package handler

import (
	"time"

	"claimsreg/internal/catalog"
	"claimsreg/internal/catalogindex/models"
	"claimsreg/pkg/domain"
)

type ClaimResponse struct {
	ClaimType   domain.ClaimType `json:"claim_type"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	StoreRef    *domain.Address  `json:"store_ref"`
}

type ClaimListResponse struct {
	Claims []*ClaimResponse `json:"claims"`
}

type BindingResponse struct {
	Claim        catalog.Ref    `json:"claim"`
	StoreRef     domain.Address `json:"store_ref"`
	RegisteredAt *time.Time     `json:"registered_at,omitempty"`
}

func toBindingResponse(b *models.Binding) *BindingResponse {
	return &BindingResponse{
		Claim:        catalog.RefOf(b.ClaimType),
		StoreRef:     b.StoreRef,
		RegisteredAt: &b.RegisteredAt,
	}
}
