package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"claimsreg/internal/catalog"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/audit"
	"claimsreg/pkg/platform/httputil"
	"claimsreg/pkg/requestcontext"
)

// Handler serves registry statistics and the audit log.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func New(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the public audit history route.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleSubjectEvents)
}

// RegisterAdmin mounts monitoring routes. The router must enforce the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/stats", h.HandleGetStats)
	r.Get("/admin/audit/recent", h.HandleGetRecentAuditEvents)
}

func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.GetStats(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to get stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleSubjectEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject, err := httputil.QueryAddress(r, "subject")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.service.SubjectHistory(ctx, subject)
	if err != nil {
		h.fail(ctx, w, "failed to get subject events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventListResponse(events))
}

func (h *Handler) HandleGetRecentAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	events, err := h.service.RecentEvents(ctx, limit)
	if err != nil {
		h.fail(ctx, w, "failed to get recent audit events", err)
		return
	}
	h.logger.InfoContext(ctx, "admin audit events retrieved",
		"request_id", requestcontext.RequestID(ctx),
		"count", len(events),
	)
	httputil.WriteJSON(w, http.StatusOK, toEventListResponse(events))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}

// EventResponse is the wire form of an audit event. Identifiers an action
// does not involve are null.
type EventResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Timestamp time.Time       `json:"timestamp"`
	Subject   *domain.Address `json:"subject"`
	Claim     *catalog.Ref    `json:"claim"`
	Issuer    *domain.Address `json:"issuer"`
	Owner     *domain.Address `json:"owner"`
	Signer    *domain.Address `json:"signer"`
	StoreRef  *domain.Address `json:"store_ref"`
	Actor     *domain.Address `json:"actor"`
	Outcome   string          `json:"outcome,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int              `json:"total"`
}

func toEventListResponse(events []audit.Event) *EventListResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return &EventListResponse{Events: out, Total: len(out)}
}

func toEventResponse(e audit.Event) *EventResponse {
	resp := &EventResponse{
		ID:        e.ID,
		Action:    e.Action,
		Timestamp: e.Timestamp,
		Subject:   addr(e.Subject),
		Issuer:    addr(e.Issuer),
		Owner:     addr(e.Owner),
		Signer:    addr(e.Signer),
		StoreRef:  addr(e.StoreRef),
		Actor:     addr(e.Actor),
		Outcome:   e.Outcome,
		RequestID: e.RequestID,
	}
	if !e.ClaimType.IsNil() {
		ref := catalog.RefOf(e.ClaimType)
		resp.Claim = &ref
	}
	return resp
}

func addr(a domain.Address) *domain.Address {
	if a.IsNil() {
		return nil
	}
	return &a
}
