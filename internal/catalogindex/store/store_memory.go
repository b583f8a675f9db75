// Package store persists claim type to store reference bindings.
package store

import (
	"context"
	"fmt"
	"sync"

	"claimsreg/internal/catalogindex/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
)

// InMemoryStore indexes bindings in both directions under one lock.
type InMemoryStore struct {
	mu      sync.RWMutex
	byClaim map[domain.ClaimType]*models.Binding
	byRef   map[domain.Address]*models.Binding
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byClaim: make(map[domain.ClaimType]*models.Binding),
		byRef:   make(map[domain.Address]*models.Binding),
	}
}

// Bind records b. Fails with sentinel.ErrAlreadyUsed if either side is bound.
func (s *InMemoryStore) Bind(_ context.Context, b *models.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byClaim[b.ClaimType]; ok {
		return fmt.Errorf("claim type already bound: %w", sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.byRef[b.StoreRef]; ok {
		return fmt.Errorf("store ref already bound: %w", sentinel.ErrAlreadyUsed)
	}
	rec := *b
	s.byClaim[b.ClaimType] = &rec
	s.byRef[b.StoreRef] = &rec
	return nil
}

// Unbind removes the binding for claimType and returns it.
func (s *InMemoryStore) Unbind(_ context.Context, claimType domain.ClaimType) (*models.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byClaim[claimType]
	if !ok {
		return nil, fmt.Errorf("claim type not bound: %w", sentinel.ErrNotFound)
	}
	delete(s.byClaim, claimType)
	delete(s.byRef, b.StoreRef)
	out := *b
	return &out, nil
}

func (s *InMemoryStore) FindByClaim(_ context.Context, claimType domain.ClaimType) (*models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byClaim[claimType]
	if !ok {
		return nil, fmt.Errorf("claim type not bound: %w", sentinel.ErrNotFound)
	}
	out := *b
	return &out, nil
}

func (s *InMemoryStore) FindByRef(_ context.Context, storeRef domain.Address) (*models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byRef[storeRef]
	if !ok {
		return nil, fmt.Errorf("store ref not bound: %w", sentinel.ErrNotFound)
	}
	out := *b
	return &out, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Binding, 0, len(s.byClaim))
	for _, b := range s.byClaim {
		rec := *b
		out = append(out, &rec)
	}
	models.SortBindings(out)
	return out, nil
}
