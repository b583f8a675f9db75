// Package store persists the issuer trust table and the issuer-claim relation.
package store

import (
	"context"
	"fmt"
	"sync"

	"claimsreg/internal/rights/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
)

// InMemoryStore keeps the relation in both directions under one lock so a
// reader never observes one side of a grant without the other.
type InMemoryStore struct {
	mu          sync.RWMutex
	issuers     map[domain.Address]*models.Issuer
	ownerIndex  map[domain.Address]domain.Address
	issuerClaim map[domain.Address]map[domain.ClaimType]struct{}
	claimIssuer map[domain.ClaimType]map[domain.Address]struct{}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		issuers:     make(map[domain.Address]*models.Issuer),
		ownerIndex:  make(map[domain.Address]domain.Address),
		issuerClaim: make(map[domain.Address]map[domain.ClaimType]struct{}),
		claimIssuer: make(map[domain.ClaimType]map[domain.Address]struct{}),
	}
}

// AddIssuer records a trusted issuer and its owner mapping. Fails with
// sentinel.ErrAlreadyUsed if either side of the mapping is taken.
func (s *InMemoryStore) AddIssuer(_ context.Context, issuer *models.Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issuers[issuer.Address]; ok {
		return fmt.Errorf("issuer already trusted: %w", sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.ownerIndex[issuer.Owner]; ok {
		return fmt.Errorf("owner already mapped: %w", sentinel.ErrAlreadyUsed)
	}
	s.issuers[issuer.Address] = &models.Issuer{
		Address:   issuer.Address,
		Owner:     issuer.Owner,
		TrustedAt: issuer.TrustedAt,
	}
	s.ownerIndex[issuer.Owner] = issuer.Address
	s.issuerClaim[issuer.Address] = make(map[domain.ClaimType]struct{})
	return nil
}

// RemoveIssuer drops the issuer, its owner mapping, and every claim it
// manages. Returns the claims that were removed.
func (s *InMemoryStore) RemoveIssuer(_ context.Context, issuer domain.Address) (*models.Issuer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.issuers[issuer]
	if !ok {
		return nil, fmt.Errorf("issuer not trusted: %w", sentinel.ErrNotFound)
	}
	removed := s.snapshot(rec)
	for claim := range s.issuerClaim[issuer] {
		s.unlinkClaimSide(claim, issuer)
	}
	delete(s.issuerClaim, issuer)
	delete(s.ownerIndex, rec.Owner)
	delete(s.issuers, issuer)
	return removed, nil
}

func (s *InMemoryStore) FindIssuer(_ context.Context, issuer domain.Address) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.issuers[issuer]
	if !ok {
		return nil, fmt.Errorf("issuer not trusted: %w", sentinel.ErrNotFound)
	}
	return s.snapshot(rec), nil
}

func (s *InMemoryStore) FindIssuerByOwner(_ context.Context, owner domain.Address) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, ok := s.ownerIndex[owner]
	if !ok {
		return nil, fmt.Errorf("owner not mapped: %w", sentinel.ErrNotFound)
	}
	return s.snapshot(s.issuers[addr]), nil
}

func (s *InMemoryStore) ListIssuers(_ context.Context) ([]*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addrs := make([]domain.Address, 0, len(s.issuers))
	for addr := range s.issuers {
		addrs = append(addrs, addr)
	}
	models.SortAddresses(addrs)

	out := make([]*models.Issuer, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, s.snapshot(s.issuers[addr]))
	}
	return out, nil
}

// GrantClaim links issuer and claimType in both directions.
func (s *InMemoryStore) GrantClaim(_ context.Context, issuer domain.Address, claimType domain.ClaimType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claims, ok := s.issuerClaim[issuer]
	if !ok {
		return fmt.Errorf("issuer not trusted: %w", sentinel.ErrNotFound)
	}
	if _, exists := claims[claimType]; exists {
		return fmt.Errorf("claim already granted: %w", sentinel.ErrAlreadyUsed)
	}
	claims[claimType] = struct{}{}
	issuers, ok := s.claimIssuer[claimType]
	if !ok {
		issuers = make(map[domain.Address]struct{})
		s.claimIssuer[claimType] = issuers
	}
	issuers[issuer] = struct{}{}
	return nil
}

// RevokeClaim unlinks issuer and claimType in both directions.
func (s *InMemoryStore) RevokeClaim(_ context.Context, issuer domain.Address, claimType domain.ClaimType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claims, ok := s.issuerClaim[issuer]
	if !ok {
		return fmt.Errorf("claim not granted: %w", sentinel.ErrNotFound)
	}
	if _, exists := claims[claimType]; !exists {
		return fmt.Errorf("claim not granted: %w", sentinel.ErrNotFound)
	}
	delete(claims, claimType)
	s.unlinkClaimSide(claimType, issuer)
	return nil
}

func (s *InMemoryStore) IsAuthorized(_ context.Context, issuer domain.Address, claimType domain.ClaimType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorizedLocked(issuer, claimType), nil
}

// IsAuthorizedByOwner resolves owner to its issuer and checks the grant in a
// single read section.
func (s *InMemoryStore) IsAuthorizedByOwner(_ context.Context, owner domain.Address, claimType domain.ClaimType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issuer, ok := s.ownerIndex[owner]
	if !ok {
		return false, nil
	}
	return s.authorizedLocked(issuer, claimType), nil
}

func (s *InMemoryStore) AuthorizedIssuers(_ context.Context, claimType domain.ClaimType) ([]domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Address, 0, len(s.claimIssuer[claimType]))
	for addr := range s.claimIssuer[claimType] {
		out = append(out, addr)
	}
	models.SortAddresses(out)
	return out, nil
}

func (s *InMemoryStore) authorizedLocked(issuer domain.Address, claimType domain.ClaimType) bool {
	if _, trusted := s.issuers[issuer]; !trusted {
		return false
	}
	_, ok := s.issuerClaim[issuer][claimType]
	return ok
}

func (s *InMemoryStore) unlinkClaimSide(claimType domain.ClaimType, issuer domain.Address) {
	issuers := s.claimIssuer[claimType]
	delete(issuers, issuer)
	if len(issuers) == 0 {
		delete(s.claimIssuer, claimType)
	}
}

// snapshot copies the record so callers never share the store's maps.
func (s *InMemoryStore) snapshot(rec *models.Issuer) *models.Issuer {
	claims := make([]domain.ClaimType, 0, len(s.issuerClaim[rec.Address]))
	for c := range s.issuerClaim[rec.Address] {
		claims = append(claims, c)
	}
	models.SortClaimTypes(claims)
	return &models.Issuer{
		Address:       rec.Address,
		Owner:         rec.Owner,
		TrustedAt:     rec.TrustedAt,
		ManagedClaims: claims,
	}
}
