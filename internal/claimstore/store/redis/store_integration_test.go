//go:build integration

package redis_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimsreg/internal/claimstore/models"
	redisstore "claimsreg/internal/claimstore/store/redis"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	"claimsreg/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = redisstore.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func attestation(subject domain.Address, sigByte byte) *models.Attestation {
	sig := make([]byte, models.SignatureLength)
	sig[0] = sigByte
	sig[64] = 28
	return &models.Attestation{
		StoreRef:  domain.Address{0x51},
		Subject:   subject,
		ClaimType: domain.ClaimType{0x01},
		Issuer:    domain.Address{0x11},
		Signature: sig,
		IssuedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *RedisStoreSuite) TestPutGetDelete() {
	ctx := context.Background()
	att := attestation(domain.Address{0x01}, 1)

	replaced, err := s.store.Put(ctx, att, false)
	s.Require().NoError(err)
	s.False(replaced)

	got, err := s.store.Get(ctx, att.StoreRef, att.Subject)
	s.Require().NoError(err)
	s.Equal(att, got)

	removed, err := s.store.Delete(ctx, att.StoreRef, att.Subject)
	s.Require().NoError(err)
	s.Equal(att.Issuer, removed.Issuer)

	_, err = s.store.Get(ctx, att.StoreRef, att.Subject)
	s.True(errors.Is(err, sentinel.ErrNotFound))
	_, err = s.store.Delete(ctx, att.StoreRef, att.Subject)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *RedisStoreSuite) TestPutPolicies() {
	ctx := context.Background()
	_, err := s.store.Put(ctx, attestation(domain.Address{0x02}, 1), false)
	s.Require().NoError(err)

	_, err = s.store.Put(ctx, attestation(domain.Address{0x02}, 2), false)
	s.True(errors.Is(err, sentinel.ErrAlreadyUsed))

	replaced, err := s.store.Put(ctx, attestation(domain.Address{0x02}, 3), true)
	s.Require().NoError(err)
	s.True(replaced)

	got, err := s.store.Get(ctx, domain.Address{0x51}, domain.Address{0x02})
	s.Require().NoError(err)
	s.Equal(byte(3), got.Signature[0])
}

func (s *RedisStoreSuite) TestConcurrentPutHasSingleWinner() {
	ctx := context.Background()
	const writers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range writers {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			if _, err := s.store.Put(ctx, attestation(domain.Address{0x03}, b), false); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(byte(i + 1))
	}
	wg.Wait()
	s.Equal(1, wins)
}
