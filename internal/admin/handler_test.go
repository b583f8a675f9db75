package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"claimsreg/internal/catalog"
	indexservice "claimsreg/internal/catalogindex/service"
	indexstore "claimsreg/internal/catalogindex/store"
	rightsservice "claimsreg/internal/rights/service"
	rightsstore "claimsreg/internal/rights/store"
	"claimsreg/pkg/domain"
	"claimsreg/pkg/platform/audit"
	"claimsreg/pkg/platform/audit/publisher"
	auditmemory "claimsreg/pkg/platform/audit/store/memory"
	adminmw "claimsreg/pkg/platform/middleware/admin"
)

const adminToken = "secret"

var (
	registryOwner = domain.Address{0x99}
	issuerQ1      = domain.Address{0x11}
	ownerO1       = domain.Address{0x12}
	subjectU      = domain.Address{0x01}
)

type HandlerSuite struct {
	suite.Suite
	events *auditmemory.InMemoryStore
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	s.events = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.events)

	rights, err := rightsservice.New(rightsstore.NewInMemory(), registryOwner, rightsservice.WithAuditPublisher(pub))
	s.Require().NoError(err)
	_, err = rights.AddTrustedIssuer(ctx, registryOwner, issuerQ1, ownerO1)
	s.Require().NoError(err)
	s.Require().NoError(rights.GrantClaim(ctx, registryOwner, issuerQ1, catalog.AgeOver18))
	s.Require().NoError(rights.GrantClaim(ctx, registryOwner, issuerQ1, catalog.KYCVerified))

	index, err := indexservice.New(indexstore.NewInMemory(), registryOwner)
	s.Require().NoError(err)
	_, err = index.RegisterStore(ctx, registryOwner, catalog.AgeOver18, domain.Address{0xa1})
	s.Require().NoError(err)

	s.Require().NoError(pub.Emit(ctx, audit.Event{
		Action:    string(audit.EventVerificationFailed),
		Subject:   subjectU,
		ClaimType: catalog.AgeOver18,
		Outcome:   "no_attestation",
	}))

	svc, err := NewService(pub, rights, index)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(adminToken, logger))
		h.RegisterAdmin(r)
	})
	s.router = r
}

func (s *HandlerSuite) do(path string, admin bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if admin {
		req.Header.Set(adminmw.HeaderToken, adminToken)
		req.Header.Set(adminmw.HeaderActor, registryOwner.String())
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestSubjectEvents() {
	rec := s.do("/events?subject="+subjectU.String(), false)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp EventListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Equal(1, resp.Total)
	event := resp.Events[0]
	s.Equal(string(audit.EventVerificationFailed), event.Action)
	s.Equal("no_attestation", event.Outcome)
	s.Require().NotNil(event.Claim)
	s.Equal("AGE_OVER_18", event.Claim.Name)
	s.Nil(event.Signer)
	s.NotEmpty(event.ID)
}

func (s *HandlerSuite) TestSubjectEventsRequiresSubject() {
	rec := s.do("/events", false)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRecentEvents() {
	rec := s.do("/admin/audit/recent?limit=2", true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp EventListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Equal(2, resp.Total)
	s.Equal(string(audit.EventVerificationFailed), resp.Events[0].Action)
	s.Equal(string(audit.EventClaimGranted), resp.Events[1].Action)

	rec = s.do("/admin/audit/recent?limit=abc", true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestAdminRoutesRequireToken() {
	rec := s.do("/admin/audit/recent", false)
	s.Equal(http.StatusUnauthorized, rec.Code)
	rec = s.do("/admin/stats", false)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestStats() {
	rec := s.do("/admin/stats", true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var stats Stats
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &stats))
	s.Equal(1, stats.TrustedIssuers)
	s.Equal(2, stats.Grants)
	s.Equal(1, stats.BoundClaims)
	s.Equal(len(catalog.All()), stats.CatalogClaims)
}
