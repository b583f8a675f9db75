package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimsreg/internal/catalog"
	"claimsreg/internal/claimstore/models"
	"claimsreg/internal/verifier/service"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/httputil"
	"claimsreg/pkg/requestcontext"
)

type Service interface {
	Verify(ctx context.Context, subject domain.Address, claimType domain.ClaimType) (*service.Result, error)
	VerifySignature(ctx context.Context, subject domain.Address, claimType domain.ClaimType, signature []byte) (*service.Result, error)
	Attestation(ctx context.Context, subject domain.Address, claimType domain.ClaimType) (*models.Attestation, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the public verification routes. None of them require a caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify", h.HandleVerify)
	r.Get("/attestations/{claim}/{subject}", h.HandleGetAttestation)
}

// HandleVerify checks the stored attestation, or the supplied signature when
// the request carries one.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger)
	if !ok {
		return
	}

	var (
		result *service.Result
		err    error
	)
	if req.signature != nil {
		result, err = h.service.VerifySignature(ctx, req.subject, req.claimType, req.signature)
	} else {
		result, err = h.service.Verify(ctx, req.subject, req.claimType)
	}
	if err != nil {
		h.fail(ctx, w, "verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVerifyResponse(result))
}

func (h *Handler) HandleGetAttestation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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

	att, err := h.service.Attestation(ctx, subject, claimType)
	if err != nil {
		h.fail(ctx, w, "attestation lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, att.View())
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
