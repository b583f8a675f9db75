package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsreg/internal/rights/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	"claimsreg/pkg/testutil"
)

var (
	issuerA = domain.Address{0xa1}
	issuerB = domain.Address{0xb1}
	ownerA  = domain.Address{0xa2}
	ownerB  = domain.Address{0xb2}
	claim1  = domain.ClaimType{0x01}
	claim2  = domain.ClaimType{0x02}
)

func trusted(t *testing.T, s *InMemoryStore, issuer, owner domain.Address) {
	t.Helper()
	require.NoError(t, s.AddIssuer(context.Background(), &models.Issuer{
		Address: issuer, Owner: owner, TrustedAt: time.Now(),
	}))
}

func TestInMemoryStore_AddIssuerRejectsTakenMapping(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	trusted(t, s, issuerA, ownerA)

	err := s.AddIssuer(ctx, &models.Issuer{Address: issuerA, Owner: ownerB})
	assert.True(t, errors.Is(err, sentinel.ErrAlreadyUsed))

	err = s.AddIssuer(ctx, &models.Issuer{Address: issuerB, Owner: ownerA})
	assert.True(t, errors.Is(err, sentinel.ErrAlreadyUsed))

	_, err = s.FindIssuer(ctx, issuerB)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound), "failed add must leave no trace")
}

func TestInMemoryStore_GrantIsBidirectional(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	trusted(t, s, issuerA, ownerA)
	trusted(t, s, issuerB, ownerB)

	require.NoError(t, s.GrantClaim(ctx, issuerA, claim1))
	require.NoError(t, s.GrantClaim(ctx, issuerB, claim1))
	require.NoError(t, s.GrantClaim(ctx, issuerA, claim2))

	issuers, err := s.AuthorizedIssuers(ctx, claim1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Address{issuerA, issuerB}, issuers)

	iss, err := s.FindIssuer(ctx, issuerA)
	require.NoError(t, err)
	assert.Equal(t, []domain.ClaimType{claim1, claim2}, iss.ManagedClaims)

	assert.True(t, errors.Is(s.GrantClaim(ctx, issuerA, claim1), sentinel.ErrAlreadyUsed))
	assert.True(t, errors.Is(s.GrantClaim(ctx, domain.Address{0xcc}, claim1), sentinel.ErrNotFound))
}

func TestInMemoryStore_RevokeClaim(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	trusted(t, s, issuerA, ownerA)
	require.NoError(t, s.GrantClaim(ctx, issuerA, claim1))

	require.NoError(t, s.RevokeClaim(ctx, issuerA, claim1))
	assert.True(t, errors.Is(s.RevokeClaim(ctx, issuerA, claim1), sentinel.ErrNotFound))

	ok, err := s.IsAuthorized(ctx, issuerA, claim1)
	require.NoError(t, err)
	assert.False(t, ok)

	issuers, err := s.AuthorizedIssuers(ctx, claim1)
	require.NoError(t, err)
	assert.Empty(t, issuers)
}

func TestInMemoryStore_RemoveIssuerCascades(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	trusted(t, s, issuerA, ownerA)
	require.NoError(t, s.GrantClaim(ctx, issuerA, claim1))
	require.NoError(t, s.GrantClaim(ctx, issuerA, claim2))

	removed, err := s.RemoveIssuer(ctx, issuerA)
	require.NoError(t, err)
	assert.Equal(t, []domain.ClaimType{claim1, claim2}, removed.ManagedClaims)

	for _, c := range []domain.ClaimType{claim1, claim2} {
		issuers, err := s.AuthorizedIssuers(ctx, c)
		require.NoError(t, err)
		assert.Empty(t, issuers)
	}
	_, err = s.FindIssuerByOwner(ctx, ownerA)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	// Owner mapping is purged, so both sides can be registered again.
	trusted(t, s, issuerA, ownerA)
	ok, err := s.IsAuthorized(ctx, issuerA, claim1)
	require.NoError(t, err)
	assert.False(t, ok, "re-trusted issuer starts with no claims")
}

func TestInMemoryStore_IsAuthorizedByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	trusted(t, s, issuerA, ownerA)
	require.NoError(t, s.GrantClaim(ctx, issuerA, claim1))

	ok, err := s.IsAuthorizedByOwner(ctx, ownerA, claim1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsAuthorizedByOwner(ctx, ownerB, claim1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsAuthorizedByOwner(ctx, ownerA, claim2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStore_SnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	trusted(t, s, issuerA, ownerA)
	require.NoError(t, s.GrantClaim(ctx, issuerA, claim1))

	iss, err := s.FindIssuer(ctx, issuerA)
	require.NoError(t, err)
	iss.ManagedClaims[0] = claim2

	ok, err := s.IsAuthorized(ctx, issuerA, claim1)
	require.NoError(t, err)
	assert.True(t, ok)
}

// Readers racing with grant/revoke must always see both directions agree.
func TestInMemoryStore_ConcurrentGrantRevokeStaysConsistent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	trusted(t, s, issuerA, ownerA)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = s.GrantClaim(ctx, issuerA, claim1)
				_ = s.RevokeClaim(ctx, issuerA, claim1)
			}
		}()
	}

	var inconsistent int
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			s.mu.RLock()
			_, forward := s.issuerClaim[issuerA][claim1]
			_, backward := s.claimIssuer[claim1][issuerA]
			s.mu.RUnlock()
			if forward != backward {
				inconsistent++
			}
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()
	assert.Zero(t, inconsistent)
}

func TestInMemoryStore_ConcurrentAddIssuerSameOwner(t *testing.T) {
	s := NewInMemory()
	res := testutil.RunConcurrent(20, func(idx int) error {
		return s.AddIssuer(context.Background(), &models.Issuer{
			Address: domain.Address{0xc0, byte(idx)}, Owner: ownerA, TrustedAt: time.Now(),
		})
	})
	assert.Equal(t, int32(1), res.Successes)
	assert.Equal(t, int32(19), res.Conflicts)

	list, err := s.ListIssuers(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
