package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"claimsreg/internal/catalog"
	indexservice "claimsreg/internal/catalogindex/service"
	indexstore "claimsreg/internal/catalogindex/store"
	"claimsreg/internal/claimstore"
	"claimsreg/internal/claimstore/models"
	"claimsreg/internal/claimstore/store/memory"
	"claimsreg/internal/issuer/service"
	rightsservice "claimsreg/internal/rights/service"
	rightsstore "claimsreg/internal/rights/store"
	"claimsreg/pkg/domain"
	"claimsreg/pkg/ethsig"
	callermw "claimsreg/pkg/platform/middleware/caller"
)

var (
	registryOwner = domain.Address{0x99}
	issuerQ1      = domain.Address{0x11}
	refAge        = domain.Address{0xa1}
	subjectU      = domain.Address{0x01}
)

type HandlerSuite struct {
	suite.Suite
	owner  *ethsig.Key
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	var err error
	s.owner, err = ethsig.GenerateKey()
	s.Require().NoError(err)

	rights, err := rightsservice.New(rightsstore.NewInMemory(), registryOwner)
	s.Require().NoError(err)
	_, err = rights.AddTrustedIssuer(ctx, registryOwner, issuerQ1, s.owner.Address())
	s.Require().NoError(err)
	s.Require().NoError(rights.GrantClaim(ctx, registryOwner, issuerQ1, catalog.AgeOver18))

	index, err := indexservice.New(indexstore.NewInMemory(), registryOwner)
	s.Require().NoError(err)
	_, err = index.RegisterStore(ctx, registryOwner, catalog.AgeOver18, refAge)
	s.Require().NoError(err)

	provider, err := claimstore.NewProvider(memory.New(), rights)
	s.Require().NoError(err)
	svc, err := service.New(rights, index, provider, service.WithSignerBinding(true))
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	r.Use(callermw.RequireAddress(logger))
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, body string, caller domain.Address) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if !caller.IsNil() {
		req.Header.Set(callermw.Header, caller.String())
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) issueBody(sig []byte) string {
	return `{"subject":"` + subjectU.String() + `","claim":"AGE_OVER_18","signature":"` + ethsig.EncodeHex(sig) + `"}`
}

func (s *HandlerSuite) TestIssueAndRevoke() {
	sig, err := s.owner.SignClaim(subjectU, catalog.AgeOver18)
	s.Require().NoError(err)

	rec := s.do(http.MethodPost, "/issuers/"+issuerQ1.String()+"/attestations", s.issueBody(sig), s.owner.Address())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var view models.View
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &view))
	s.Equal(issuerQ1, view.Issuer)
	s.Equal(ethsig.EncodeHex(sig), view.Signature)

	rec = s.do(http.MethodPost, "/issuers/"+issuerQ1.String()+"/attestations", s.issueBody(sig), s.owner.Address())
	s.Equal(http.StatusConflict, rec.Code)

	path := "/issuers/" + issuerQ1.String() + "/attestations/AGE_OVER_18/" + subjectU.String()
	rec = s.do(http.MethodDelete, path, "", s.owner.Address())
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, path, "", s.owner.Address())
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestCallerHeaderRequired() {
	rec := s.do(http.MethodPost, "/issuers/"+issuerQ1.String()+"/attestations", s.issueBody(make([]byte, 65)), domain.Address{})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestForeignCallerForbidden() {
	sig, err := s.owner.SignClaim(subjectU, catalog.AgeOver18)
	s.Require().NoError(err)
	rec := s.do(http.MethodPost, "/issuers/"+issuerQ1.String()+"/attestations", s.issueBody(sig), domain.Address{0x42})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestShortSignatureIsUnprocessable() {
	rec := s.do(http.MethodPost, "/issuers/"+issuerQ1.String()+"/attestations", s.issueBody(make([]byte, 64)), s.owner.Address())
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestBadHexIsBadRequest() {
	body := `{"subject":"` + subjectU.String() + `","claim":"AGE_OVER_18","signature":"0xzz"}`
	rec := s.do(http.MethodPost, "/issuers/"+issuerQ1.String()+"/attestations", body, s.owner.Address())
	s.Equal(http.StatusBadRequest, rec.Code)
}
