package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"claimsreg/internal/catalog"
	"claimsreg/internal/rights/service"
	"claimsreg/internal/rights/store"
	"claimsreg/pkg/domain"
	adminmw "claimsreg/pkg/platform/middleware/admin"
)

const adminToken = "secret-token"

var (
	registryOwner = domain.Address{0x99}
	issuerAddr    = domain.Address{0x11}
	ownerAddr     = domain.Address{0x12}
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	svc    *service.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	svc, err := service.New(store.NewInMemory(), registryOwner)
	s.Require().NoError(err)
	s.svc = svc
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

func (s *HandlerSuite) do(method, path, body string, actor domain.Address) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if !actor.IsNil() {
		req.Header.Set(adminmw.HeaderToken, adminToken)
		req.Header.Set(adminmw.HeaderActor, actor.String())
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) trustAndGrant() {
	rec := s.do(http.MethodPost, "/admin/issuers",
		`{"issuer":"`+issuerAddr.String()+`","owner":"`+ownerAddr.String()+`"}`, registryOwner)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/admin/issuers/"+issuerAddr.String()+"/claims", `{"claim":"AGE_OVER_18"}`, registryOwner)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *HandlerSuite) TestAdminTokenRequired() {
	rec := s.do(http.MethodPost, "/admin/issuers", `{}`, domain.Address{})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestNonOwnerActorIsForbidden() {
	rec := s.do(http.MethodPost, "/admin/issuers",
		`{"issuer":"`+issuerAddr.String()+`","owner":"`+ownerAddr.String()+`"}`, domain.Address{0x55})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestAddIssuerRejectsMalformedAddress() {
	rec := s.do(http.MethodPost, "/admin/issuers", `{"issuer":"0x12","owner":"`+ownerAddr.String()+`"}`, registryOwner)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGrantAndQuery() {
	s.trustAndGrant()

	rec := s.do(http.MethodGet, "/authorization?issuer="+issuerAddr.String()+"&claim=AGE_OVER_18", "", domain.Address{})
	s.Require().Equal(http.StatusOK, rec.Code)
	var auth AuthorizationResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &auth))
	s.True(auth.Authorized)
	s.Equal("AGE_OVER_18", auth.Claim.Name)

	rec = s.do(http.MethodGet, "/authorization/owner?owner="+ownerAddr.String()+"&claim="+catalog.AgeOver18.String(), "", domain.Address{})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &auth))
	s.True(auth.Authorized)

	rec = s.do(http.MethodGet, "/claims/AGE_OVER_18/issuers", "", domain.Address{})
	s.Require().Equal(http.StatusOK, rec.Code)
	var issuers AuthorizedIssuersResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &issuers))
	s.Equal([]domain.Address{issuerAddr}, issuers.Issuers)

	rec = s.do(http.MethodGet, "/issuers/"+issuerAddr.String(), "", domain.Address{})
	s.Require().Equal(http.StatusOK, rec.Code)
	var iss IssuerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &iss))
	s.Equal(ownerAddr, iss.Owner)
	s.Require().Len(iss.ManagedClaims, 1)
	s.Equal(catalog.AgeOver18, iss.ManagedClaims[0].ClaimType)
}

func (s *HandlerSuite) TestRevokeThenRemove() {
	s.trustAndGrant()

	rec := s.do(http.MethodDelete, "/admin/issuers/"+issuerAddr.String()+"/claims/AGE_OVER_18", "", registryOwner)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, "/admin/issuers/"+issuerAddr.String()+"/claims/AGE_OVER_18", "", registryOwner)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/admin/issuers/"+issuerAddr.String(), "", registryOwner)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/issuers/"+issuerAddr.String(), "", domain.Address{})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/issuers/"+issuerAddr.String()+"/claims", "", domain.Address{})
	s.Require().Equal(http.StatusOK, rec.Code)
	var managed ManagedClaimsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &managed))
	s.Empty(managed.Claims)
}

func (s *HandlerSuite) TestGrantUnknownClaimRejected() {
	s.trustAndGrant()
	rec := s.do(http.MethodPost, "/admin/issuers/"+issuerAddr.String()+"/claims", `{"claim":"NOT_A_CLAIM"}`, registryOwner)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestDuplicateTrustConflicts() {
	s.trustAndGrant()
	rec := s.do(http.MethodPost, "/admin/issuers",
		`{"issuer":"`+issuerAddr.String()+`","owner":"`+domain.Address{0x13}.String()+`"}`, registryOwner)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestListIssuers() {
	s.trustAndGrant()
	rec := s.do(http.MethodGet, "/issuers", "", domain.Address{})
	s.Require().Equal(http.StatusOK, rec.Code)
	var list IssuerListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list.Issuers, 1)
	s.Equal(issuerAddr, list.Issuers[0].Issuer)
}
