package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimsreg/internal/catalog"
	"claimsreg/internal/issuer/service"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/httputil"
	"claimsreg/pkg/requestcontext"
)

// Facades resolves the per-issuer surface.
type Facades interface {
	Facade(issuer domain.Address) *service.Facade
}

type Handler struct {
	facades Facades
	logger  *slog.Logger
}

func New(facades Facades, logger *slog.Logger) *Handler {
	return &Handler{facades: facades, logger: logger}
}

// Register mounts the issuer routes. The router must already have set the
// caller address.
func (h *Handler) Register(r chi.Router) {
	r.Post("/issuers/{issuer}/attestations", h.HandleIssue)
	r.Delete("/issuers/{issuer}/attestations/{claim}/{subject}", h.HandleRevoke)
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := httputil.PathAddress(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger)
	if !ok {
		return
	}

	att, err := h.facades.Facade(issuer).Issue(ctx, requestcontext.Caller(ctx), req.subject, req.claimType, req.signature)
	if err != nil {
		h.fail(ctx, w, "issue attestation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, att.View())
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := httputil.PathAddress(r, "issuer")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, err := httputil.PathAddress(r, "subject")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claimType, err := catalog.Parse(chi.URLParam(r, "claim"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.facades.Facade(issuer).Revoke(ctx, requestcontext.Caller(ctx), subject, claimType); err != nil {
		h.fail(ctx, w, "revoke attestation failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
