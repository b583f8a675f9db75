package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsreg/internal/catalogindex/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
)

func binding(claim byte, ref byte) *models.Binding {
	return &models.Binding{
		ClaimType:    domain.ClaimType{claim},
		StoreRef:     domain.Address{ref},
		RegisteredAt: time.Now().UTC(),
	}
}

func TestBindEnforcesBijection(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Bind(ctx, binding(1, 0xa)))

	assert.True(t, errors.Is(s.Bind(ctx, binding(1, 0xb)), sentinel.ErrAlreadyUsed), "claim already bound")
	assert.True(t, errors.Is(s.Bind(ctx, binding(2, 0xa)), sentinel.ErrAlreadyUsed), "ref already bound")

	_, err := s.FindByRef(ctx, domain.Address{0xb})
	assert.True(t, errors.Is(err, sentinel.ErrNotFound), "failed bind must leave no trace")
}

func TestLookupsAgreeInBothDirections(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Bind(ctx, binding(1, 0xa)))

	byClaim, err := s.FindByClaim(ctx, domain.ClaimType{1})
	require.NoError(t, err)
	byRef, err := s.FindByRef(ctx, domain.Address{0xa})
	require.NoError(t, err)
	assert.Equal(t, byClaim, byRef)
}

func TestUnbindFreesBothSides(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Bind(ctx, binding(1, 0xa)))

	removed, err := s.Unbind(ctx, domain.ClaimType{1})
	require.NoError(t, err)
	assert.Equal(t, domain.Address{0xa}, removed.StoreRef)

	_, err = s.Unbind(ctx, domain.ClaimType{1})
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	require.NoError(t, s.Bind(ctx, binding(2, 0xa)), "ref is reusable after unbind")
	require.NoError(t, s.Bind(ctx, binding(1, 0xb)), "claim is rebindable after unbind")
}

func TestListSortedByClaim(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Bind(ctx, binding(3, 0xa)))
	require.NoError(t, s.Bind(ctx, binding(1, 0xb)))
	require.NoError(t, s.Bind(ctx, binding(2, 0xc)))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.ClaimType{1}, list[0].ClaimType)
	assert.Equal(t, domain.ClaimType{2}, list[1].ClaimType)
	assert.Equal(t, domain.ClaimType{3}, list[2].ClaimType)
}
