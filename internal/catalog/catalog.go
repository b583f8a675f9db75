// Package catalog is the compiled-in list of recognized claim types. It is the
// single place new claim kinds are introduced: add an identifier below and an
// entry to the entries table.
package catalog

import (
	"sort"
	"strings"

	"claimsreg/pkg/domain"
	"claimsreg/pkg/ethsig"
)

// UnknownName is returned by NameOf for identifiers outside the catalog.
const UnknownName = "UNKNOWN"

// Claim type identifiers: Keccak-256 of the canonical name.
var (
	AgeOver18          = claimTypeOf("AGE_OVER_18")
	AgeOver21          = claimTypeOf("AGE_OVER_21")
	EUCitizen          = claimTypeOf("EU_CITIZEN")
	EEAResident        = claimTypeOf("EEA_RESIDENT")
	KYCVerified        = claimTypeOf("KYC_VERIFIED")
	AccreditedInvestor = claimTypeOf("ACCREDITED_INVESTOR")
)

// Entry pairs a claim type with its human-readable name.
type Entry struct {
	ClaimType   domain.ClaimType `json:"claim_type"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
}

var entries = []Entry{
	{AgeOver18, "AGE_OVER_18", "Subject is at least 18 years old"},
	{AgeOver21, "AGE_OVER_21", "Subject is at least 21 years old"},
	{EUCitizen, "EU_CITIZEN", "Subject holds citizenship of an EU member state"},
	{EEAResident, "EEA_RESIDENT", "Subject is resident in the European Economic Area"},
	{KYCVerified, "KYC_VERIFIED", "Subject passed know-your-customer identity checks"},
	{AccreditedInvestor, "ACCREDITED_INVESTOR", "Subject qualifies as an accredited investor"},
}

var (
	byType = make(map[domain.ClaimType]Entry, len(entries))
	byName = make(map[string]Entry, len(entries))
)

func init() {
	for _, e := range entries {
		byType[e.ClaimType] = e
		byName[e.Name] = e
	}
}

// IsValid reports whether c is a recognized claim type.
func IsValid(c domain.ClaimType) bool {
	_, ok := byType[c]
	return ok
}

// NameOf returns the canonical name of c, or UnknownName. It never fails.
func NameOf(c domain.ClaimType) string {
	if e, ok := byType[c]; ok {
		return e.Name
	}
	return UnknownName
}

// Lookup resolves a canonical name (case-insensitive) to its claim type.
func Lookup(name string) (domain.ClaimType, bool) {
	e, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	return e.ClaimType, ok
}

// All returns every catalog entry ordered by name.
func All() []Entry {
	out := append([]Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse accepts either a catalog name or a 0x-hex identifier. Hex identifiers are
// returned even when they are not in the catalog; callers decide validity.
func Parse(s string) (domain.ClaimType, error) {
	if c, ok := Lookup(s); ok {
		return c, nil
	}
	return domain.ParseClaimType(s)
}

// Ref is the wire form of a claim type: identifier plus canonical name.
type Ref struct {
	ClaimType domain.ClaimType `json:"claim_type"`
	Name      string           `json:"name"`
}

// RefOf builds the wire form of c. Unknown identifiers carry UnknownName.
func RefOf(c domain.ClaimType) Ref {
	return Ref{ClaimType: c, Name: NameOf(c)}
}

// RefsOf maps RefOf over claims.
func RefsOf(claims []domain.ClaimType) []Ref {
	out := make([]Ref, 0, len(claims))
	for _, c := range claims {
		out = append(out, RefOf(c))
	}
	return out
}

func claimTypeOf(name string) domain.ClaimType {
	var c domain.ClaimType
	copy(c[:], ethsig.Keccak256([]byte(name)))
	return c
}
