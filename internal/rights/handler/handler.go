package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimsreg/internal/catalog"
	"claimsreg/internal/rights/models"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/httputil"
	"claimsreg/pkg/requestcontext"
)

// Service is the rights registry as seen by HTTP.
type Service interface {
	AddTrustedIssuer(ctx context.Context, caller, issuer, owner domain.Address) (*models.Issuer, error)
	RemoveTrustedIssuer(ctx context.Context, caller, issuer domain.Address) error
	GrantClaim(ctx context.Context, caller, issuer domain.Address, claimType domain.ClaimType) error
	RevokeClaim(ctx context.Context, caller, issuer domain.Address, claimType domain.ClaimType) error
	IsAuthorized(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) (bool, error)
	IsAuthorizedByOwner(ctx context.Context, owner domain.Address, claimType domain.ClaimType) (bool, error)
	TrustedIssuers(ctx context.Context) ([]*models.Issuer, error)
	Issuer(ctx context.Context, issuer domain.Address) (*models.Issuer, error)
	ManagedClaims(ctx context.Context, issuer domain.Address) ([]domain.ClaimType, error)
	AuthorizedIssuers(ctx context.Context, claimType domain.ClaimType) ([]domain.Address, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the mutating routes. The router must already enforce
// the admin token and set the caller.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/issuers", h.HandleAddIssuer)
	r.Delete("/admin/issuers/{issuer}", h.HandleRemoveIssuer)
	r.Post("/admin/issuers/{issuer}/claims", h.HandleGrantClaim)
	r.Delete("/admin/issuers/{issuer}/claims/{claim}", h.HandleRevokeClaim)
}

// Register mounts the public query routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/issuers", h.HandleListIssuers)
	r.Get("/issuers/{issuer}", h.HandleGetIssuer)
	r.Get("/issuers/{issuer}/claims", h.HandleManagedClaims)
	r.Get("/claims/{claim}/issuers", h.HandleAuthorizedIssuers)
	r.Get("/authorization", h.HandleIsAuthorized)
	r.Get("/authorization/owner", h.HandleIsAuthorizedByOwner)
}

func (h *Handler) HandleAddIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddIssuerRequest](w, r, h.logger)
	if !ok {
		return
	}

	issuer, err := h.service.AddTrustedIssuer(ctx, requestcontext.Caller(ctx), req.issuer, req.owner)
	if err != nil {
		h.fail(ctx, w, "add trusted issuer failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toIssuerResponse(issuer))
}

func (h *Handler) HandleRemoveIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := httputil.PathAddress(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RemoveTrustedIssuer(ctx, requestcontext.Caller(ctx), issuer); err != nil {
		h.fail(ctx, w, "remove trusted issuer failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGrantClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := httputil.PathAddress(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantClaimRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.GrantClaim(ctx, requestcontext.Caller(ctx), issuer, req.claimType); err != nil {
		h.fail(ctx, w, "grant claim failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &AuthorizationResponse{
		Issuer:     issuer,
		Claim:      catalog.RefOf(req.claimType),
		Authorized: true,
	})
}

func (h *Handler) HandleRevokeClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := httputil.PathAddress(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claimType, err := catalog.Parse(chi.URLParam(r, "claim"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RevokeClaim(ctx, requestcontext.Caller(ctx), issuer, claimType); err != nil {
		h.fail(ctx, w, "revoke claim failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListIssuers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuers, err := h.service.TrustedIssuers(ctx)
	if err != nil {
		h.fail(ctx, w, "list trusted issuers failed", err)
		return
	}
	out := make([]*IssuerResponse, 0, len(issuers))
	for _, iss := range issuers {
		out = append(out, toIssuerResponse(iss))
	}
	httputil.WriteJSON(w, http.StatusOK, &IssuerListResponse{Issuers: out})
}

func (h *Handler) HandleGetIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := httputil.PathAddress(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	issuer, err := h.service.Issuer(ctx, addr)
	if err != nil {
		h.fail(ctx, w, "get issuer failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toIssuerResponse(issuer))
}

func (h *Handler) HandleManagedClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := httputil.PathAddress(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := h.service.ManagedClaims(ctx, addr)
	if err != nil {
		h.fail(ctx, w, "list managed claims failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ManagedClaimsResponse{Issuer: addr, Claims: catalog.RefsOf(claims)})
}

func (h *Handler) HandleAuthorizedIssuers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimType, err := catalog.Parse(chi.URLParam(r, "claim"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	issuers, err := h.service.AuthorizedIssuers(ctx, claimType)
	if err != nil {
		h.fail(ctx, w, "list authorized issuers failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AuthorizedIssuersResponse{Claim: catalog.RefOf(claimType), Issuers: issuers})
}

func (h *Handler) HandleIsAuthorized(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, claimType, err := addressAndClaim(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ok, err := h.service.IsAuthorized(ctx, issuer, claimType)
	if err != nil {
		h.fail(ctx, w, "authorization check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AuthorizationResponse{Issuer: issuer, Claim: catalog.RefOf(claimType), Authorized: ok})
}

func (h *Handler) HandleIsAuthorizedByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, claimType, err := addressAndClaim(r, "owner")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ok, err := h.service.IsAuthorizedByOwner(ctx, owner, claimType)
	if err != nil {
		h.fail(ctx, w, "owner authorization check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AuthorizationResponse{Owner: owner, Claim: catalog.RefOf(claimType), Authorized: ok})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}

func addressAndClaim(r *http.Request, addrParam string) (domain.Address, domain.ClaimType, error) {
	addr, err := httputil.QueryAddress(r, addrParam)
	if err != nil {
		return domain.Address{}, domain.ClaimType{}, err
	}
	claimType, err := catalog.Parse(r.URL.Query().Get("claim"))
	if err != nil {
		return domain.Address{}, domain.ClaimType{}, err
	}
	return addr, claimType, nil
}
