// Package caller authenticates the issuer-facing routes by the address the
// client claims to act as.
package caller

import (
	"log/slog"
	"net/http"

	"claimsreg/pkg/domain"
	"claimsreg/pkg/requestcontext"
)

// Header carries the caller's owner address on issuer routes.
const Header = "X-Caller-Address"

// RequireAddress rejects requests without a well-formed, non-null caller
// address and stores it in the request context.
func RequireAddress(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			addr, err := domain.ParseAddress(r.Header.Get(Header))
			if err != nil || addr.IsNil() {
				logger.WarnContext(ctx, "caller address missing or malformed",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"caller address required"}`)) //nolint:errcheck // headers already sent
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, addr)))
		})
	}
}
