package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimsreg/internal/catalog"
	"claimsreg/internal/catalogindex/models"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/httputil"
	"claimsreg/pkg/requestcontext"
)

type Service interface {
	RegisterStore(ctx context.Context, caller domain.Address, claimType domain.ClaimType, storeRef domain.Address) (*models.Binding, error)
	UnregisterStore(ctx context.Context, caller domain.Address, claimType domain.ClaimType) error
	StoreFor(ctx context.Context, claimType domain.ClaimType) (domain.Address, error)
	Bindings(ctx context.Context) ([]*models.Binding, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/stores", h.HandleRegisterStore)
	r.Delete("/admin/stores/{claim}", h.HandleUnregisterStore)
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/claims", h.HandleListClaims)
	r.Get("/claims/{claim}/store", h.HandleStoreFor)
}

func (h *Handler) HandleRegisterStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterStoreRequest](w, r, h.logger)
	if !ok {
		return
	}

	b, err := h.service.RegisterStore(ctx, requestcontext.Caller(ctx), req.claimType, req.storeRef)
	if err != nil {
		h.fail(ctx, w, "register store failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toBindingResponse(b))
}

func (h *Handler) HandleUnregisterStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimType, err := catalog.Parse(chi.URLParam(r, "claim"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.UnregisterStore(ctx, requestcontext.Caller(ctx), claimType); err != nil {
		h.fail(ctx, w, "unregister store failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListClaims returns the full catalog with each claim's store binding, if any.
func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bindings, err := h.service.Bindings(ctx)
	if err != nil {
		h.fail(ctx, w, "list bindings failed", err)
		return
	}
	refs := make(map[domain.ClaimType]domain.Address, len(bindings))
	for _, b := range bindings {
		refs[b.ClaimType] = b.StoreRef
	}

	entries := catalog.All()
	out := make([]*ClaimResponse, 0, len(entries))
	for _, e := range entries {
		c := &ClaimResponse{ClaimType: e.ClaimType, Name: e.Name, Description: e.Description}
		if ref, ok := refs[e.ClaimType]; ok {
			c.StoreRef = &ref
		}
		out = append(out, c)
	}
	httputil.WriteJSON(w, http.StatusOK, &ClaimListResponse{Claims: out})
}

func (h *Handler) HandleStoreFor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimType, err := catalog.Parse(chi.URLParam(r, "claim"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ref, err := h.service.StoreFor(ctx, claimType)
	if err != nil {
		h.fail(ctx, w, "resolve store failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &BindingResponse{Claim: catalog.RefOf(claimType), StoreRef: ref})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
