package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"claimsreg/pkg/domain"
	"claimsreg/pkg/requestcontext"
)

const (
	// HeaderToken carries the shared administrative secret.
	HeaderToken = "X-Admin-Token"
	// HeaderActor names the principal performing the administrative action.
	HeaderActor = "X-Admin-Actor"
)

// RequireAdminToken admits requests that present the admin token and a
// well-formed actor address. The actor becomes the request caller; services
// still compare it against the registry owner.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(HeaderToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin token required")
				return
			}

			actor, err := domain.ParseAddress(r.Header.Get(HeaderActor))
			if err != nil || actor.IsNil() {
				logger.WarnContext(ctx, "admin actor missing or malformed",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin actor address required")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, actor)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`)) //nolint:errcheck // headers already sent
}
