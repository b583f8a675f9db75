// Package httptransport assembles every handler into one chi router. Handlers
// own their routes; this package only decides which middleware guards them.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	adminmw "claimsreg/pkg/platform/middleware/admin"
	callermw "claimsreg/pkg/platform/middleware/caller"
	request "claimsreg/pkg/platform/middleware/request"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 64 << 10
)

// PublicRoutes are mounted without authentication.
type PublicRoutes interface {
	Register(r chi.Router)
}

// AdminRoutes are mounted behind the admin token.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// Routes lists the handlers by the guard they need. Issuer routes require
// the caller address header.
type Routes struct {
	Public []PublicRoutes
	Issuer []PublicRoutes
	Admin  []AdminRoutes
}

type Config struct {
	AdminToken string
	Latency    *request.Metrics
}

// NewRouter wires routes with the shared middleware stack.
func NewRouter(routes Routes, cfg Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Latency, routePattern))
	r.Use(request.Timeout(requestTimeout))
	r.Use(request.BodyLimit(maxBodyBytes))
	r.Use(request.ContentTypeJSON)

	for _, h := range routes.Public {
		h.Register(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(callermw.RequireAddress(logger))
		for _, h := range routes.Issuer {
			h.Register(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, logger))
		for _, h := range routes.Admin {
			h.RegisterAdmin(r)
		}
	})
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
