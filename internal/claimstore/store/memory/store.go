// Package memory is the in-process attestation backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"claimsreg/internal/claimstore/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
)

type InMemoryStore struct {
	mu           sync.RWMutex
	attestations map[models.Key]*models.Attestation
}

func New() *InMemoryStore {
	return &InMemoryStore{attestations: make(map[models.Key]*models.Attestation)}
}

// Put stores att. With overwrite false an existing entry is left in place and
// sentinel.ErrAlreadyUsed is returned. replaced reports whether an entry was overwritten.
func (s *InMemoryStore) Put(_ context.Context, att *models.Attestation, overwrite bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := att.Key()
	_, exists := s.attestations[key]
	if exists && !overwrite {
		return false, fmt.Errorf("attestation exists: %w", sentinel.ErrAlreadyUsed)
	}
	s.attestations[key] = att.Clone()
	return exists, nil
}

func (s *InMemoryStore) Get(_ context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, ok := s.attestations[models.Key{StoreRef: storeRef, Subject: subject}]
	if !ok {
		return nil, fmt.Errorf("attestation not found: %w", sentinel.ErrNotFound)
	}
	return att.Clone(), nil
}

// Delete removes and returns the attestation.
func (s *InMemoryStore) Delete(_ context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Key{StoreRef: storeRef, Subject: subject}
	att, ok := s.attestations[key]
	if !ok {
		return nil, fmt.Errorf("attestation not found: %w", sentinel.ErrNotFound)
	}
	delete(s.attestations, key)
	return att, nil
}

// Len is the number of stored attestations across all store references.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attestations)
}
