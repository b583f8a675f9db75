//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"claimsreg/pkg/domain"
	audit "claimsreg/pkg/platform/audit"
	"claimsreg/pkg/platform/audit/store/postgres"
	"claimsreg/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *AuditStoreSuite) TestAppendAndListBySubject() {
	ctx := context.Background()
	subject := domain.Address{0x11}
	base := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		ID:        uuid.NewString(),
		Timestamp: base,
		Action:    string(audit.EventAttestationIssued),
		Subject:   subject,
		ClaimType: domain.ClaimType{0x22},
		Issuer:    domain.Address{0x33},
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base.Add(time.Second),
		Action:    string(audit.EventSignatureVerified),
		Subject:   subject,
		Signer:    domain.Address{0x44},
		Outcome:   "verified",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base,
		Action:    string(audit.EventIssuerTrusted),
		Issuer:    domain.Address{0x33},
	}))

	events, err := s.store.ListBySubject(ctx, subject)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventSignatureVerified), events[0].Action)
	s.Equal(domain.Address{0x44}, events[0].Signer)
	s.True(events[0].Issuer.IsNil())
	s.Equal(domain.ClaimType{0x22}, events[1].ClaimType)

	recent, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Len(recent, 3)
}

func (s *AuditStoreSuite) TestAppendIsIdempotentByID() {
	ctx := context.Background()
	event := audit.Event{ID: uuid.NewString(), Timestamp: time.Now(), Action: string(audit.EventClaimGranted)}

	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event))

	recent, err := s.store.ListRecent(ctx, 0)
	s.Require().NoError(err)
	s.Len(recent, 1)
}
