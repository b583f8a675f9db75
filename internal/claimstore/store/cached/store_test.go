package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsreg/internal/claimstore/metrics"
	"claimsreg/internal/claimstore/models"
	"claimsreg/internal/claimstore/store/memory"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
)

var (
	ref     = domain.Address{0x51}
	subject = domain.Address{0x52}
)

// countingBackend counts reads that reach the wrapped store.
type countingBackend struct {
	*memory.InMemoryStore
	gets int
}

func (c *countingBackend) Get(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	c.gets++
	return c.InMemoryStore.Get(ctx, storeRef, subject)
}

func attestation(sigByte byte) *models.Attestation {
	sig := make([]byte, models.SignatureLength)
	sig[0] = sigByte
	return &models.Attestation{StoreRef: ref, Subject: subject, Issuer: domain.Address{0x11}, Signature: sig}
}

func newStore(t *testing.T) (*Store, *countingBackend, *metrics.Metrics) {
	t.Helper()
	backend := &countingBackend{InMemoryStore: memory.New()}
	m := metrics.New(prometheus.NewRegistry())
	return New(backend, 4, time.Minute, m), backend, m
}

func TestGetServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	s, backend, m := newStore(t)
	_, err := backend.Put(ctx, attestation(1), false)
	require.NoError(t, err)

	for range 3 {
		got, err := s.Get(ctx, ref, subject)
		require.NoError(t, err)
		assert.Equal(t, byte(1), got.Signature[0])
	}
	assert.Equal(t, 1, backend.gets)
	assert.Equal(t, 2.0, promtest.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CacheMissesTotal))
}

func TestMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	s, backend, _ := newStore(t)

	_, err := s.Get(ctx, ref, subject)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	_, err = backend.Put(ctx, attestation(1), false)
	require.NoError(t, err)
	_, err = s.Get(ctx, ref, subject)
	assert.NoError(t, err)
}

func TestDeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)
	_, err := s.Put(ctx, attestation(1), false)
	require.NoError(t, err)

	_, err = s.Delete(ctx, ref, subject)
	require.NoError(t, err)
	_, err = s.Get(ctx, ref, subject)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestRejectedPutKeepsBackendValue(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)
	_, err := s.Put(ctx, attestation(1), false)
	require.NoError(t, err)

	_, err = s.Put(ctx, attestation(2), false)
	require.True(t, errors.Is(err, sentinel.ErrAlreadyUsed))

	got, err := s.Get(ctx, ref, subject)
	require.NoError(t, err)
	assert.Equal(t, byte(1), got.Signature[0])
}

func TestUpsertRefreshesCache(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)
	_, err := s.Put(ctx, attestation(1), false)
	require.NoError(t, err)
	_, err = s.Get(ctx, ref, subject)
	require.NoError(t, err)

	replaced, err := s.Put(ctx, attestation(9), true)
	require.NoError(t, err)
	assert.True(t, replaced)

	got, err := s.Get(ctx, ref, subject)
	require.NoError(t, err)
	assert.Equal(t, byte(9), got.Signature[0])
}

// pausingBackend holds its first Get after the read, until release is closed.
type pausingBackend struct {
	*memory.InMemoryStore
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newPausingBackend() *pausingBackend {
	return &pausingBackend{
		InMemoryStore: memory.New(),
		read:          make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (p *pausingBackend) Get(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	att, err := p.InMemoryStore.Get(ctx, storeRef, subject)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return att, err
}

func TestDeleteDuringMissFillIsNotCached(t *testing.T) {
	ctx := context.Background()
	backend := newPausingBackend()
	_, err := backend.Put(ctx, attestation(2), false)
	require.NoError(t, err)
	s := New(backend, 4, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Get(ctx, ref, subject)
	}()
	<-backend.read

	_, err = s.Delete(ctx, ref, subject)
	require.NoError(t, err)
	close(backend.release)
	<-done

	_, err = s.Get(ctx, ref, subject)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound), "revoked attestation must not be served from cache")
}

func TestUpsertDuringMissFillIsNotShadowed(t *testing.T) {
	ctx := context.Background()
	backend := newPausingBackend()
	_, err := backend.Put(ctx, attestation(1), false)
	require.NoError(t, err)
	s := New(backend, 4, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Get(ctx, ref, subject)
	}()
	<-backend.read

	_, err = s.Put(ctx, attestation(9), true)
	require.NoError(t, err)
	close(backend.release)
	<-done

	got, err := s.Get(ctx, ref, subject)
	require.NoError(t, err)
	assert.Equal(t, byte(9), got.Signature[0])
}
