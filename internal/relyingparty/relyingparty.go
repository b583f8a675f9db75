// Package relyingparty shows how a downstream service gates its routes on a
// verified claim. RequireClaim is the reusable part; the demo handler is the
// smallest useful consumer.
package relyingparty

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimsreg/internal/catalog"
	"claimsreg/internal/verifier/service"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/httputil"
	"claimsreg/pkg/requestcontext"
)

// SubjectHeader carries the address a relying-party request acts for.
const SubjectHeader = "X-Subject-Address"

type Verifier interface {
	Verify(ctx context.Context, subject domain.Address, claimType domain.ClaimType) (*service.Result, error)
}

// SubjectFunc extracts the subject a request is made on behalf of.
type SubjectFunc func(r *http.Request) (domain.Address, error)

// HeaderSubject reads the subject from header.
func HeaderSubject(header string) SubjectFunc {
	return func(r *http.Request) (domain.Address, error) {
		addr, err := domain.ParseAddress(r.Header.Get(header))
		if err != nil || addr.IsNil() {
			return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "subject address required")
		}
		return addr, nil
	}
}

type resultKey struct{}

// ResultFrom returns the verdict RequireClaim attached to ctx.
func ResultFrom(ctx context.Context) (*service.Result, bool) {
	res, ok := ctx.Value(resultKey{}).(*service.Result)
	return res, ok
}

// RequireClaim admits a request only when its subject verifiably holds
// claimType. Missing subjects get 401, negative verdicts 403, and verifier
// failures 500.
func RequireClaim(v Verifier, claimType domain.ClaimType, subjectFn SubjectFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	name := catalog.NameOf(claimType)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject, err := subjectFn(r)
			if err != nil {
				logger.WarnContext(ctx, "relying party request without subject",
					"claim", name,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "subject address required"))
				return
			}

			result, err := v.Verify(ctx, subject, claimType)
			if err != nil {
				logger.ErrorContext(ctx, "claim verification failed",
					"claim", name,
					"subject", subject.String(),
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "claim verification unavailable"))
				return
			}
			if !result.Verified {
				logger.InfoContext(ctx, "claim not held",
					"claim", name,
					"subject", subject.String(),
					"outcome", string(result.Outcome),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "subject does not hold "+name))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, resultKey{}, result)))
		})
	}
}

// Handler serves the demo routes.
type Handler struct {
	verifier Verifier
	logger   *slog.Logger
}

func New(v Verifier, logger *slog.Logger) *Handler {
	return &Handler{verifier: v, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(RequireClaim(h.verifier, catalog.AgeOver18, HeaderSubject(SubjectHeader), h.logger)).
		Get("/demo/age-restricted", h.HandleAgeRestricted)
}

type AccessResponse struct {
	Subject domain.Address  `json:"subject"`
	Claim   catalog.Ref     `json:"claim"`
	Issuer  *domain.Address `json:"issuer"`
	Access  string          `json:"access"`
}

func (h *Handler) HandleAgeRestricted(w http.ResponseWriter, r *http.Request) {
	result, ok := ResultFrom(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "verification result missing"))
		return
	}
	resp := &AccessResponse{
		Subject: result.Subject,
		Claim:   catalog.RefOf(result.ClaimType),
		Access:  "granted",
	}
	if !result.Issuer.IsNil() {
		issuer := result.Issuer
		resp.Issuer = &issuer
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
