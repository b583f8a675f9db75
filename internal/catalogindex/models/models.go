package models

import (
	"bytes"
	"sort"
	"time"

	"claimsreg/pkg/domain"
)

// Binding ties a claim type to the store reference holding its attestations.
// The relation is a bijection.
type Binding struct {
	ClaimType    domain.ClaimType
	StoreRef     domain.Address
	RegisteredAt time.Time
}

// SortBindings orders bindings by claim type identifier.
func SortBindings(b []*Binding) {
	sort.Slice(b, func(i, j int) bool {
		return bytes.Compare(b[i].ClaimType[:], b[j].ClaimType[:]) < 0
	})
}
