// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/server/handlers"
	"github.com/tabledesk/tabledesk/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router serving /api/*.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}
	hh := handlers.NewHealthHandler(svc, cfg)
	ah := handlers.NewAuthHandler(svc)
	th := handlers.NewTableHandler(svc)
	rh := handlers.NewRowHandler(svc)
	ih := handlers.NewImportHandler(svc)
	eh := handlers.NewExportHandler(svc)

	const (
		user  = identity.RoleUser
		admin = identity.RoleAdmin
	)

	// Health check
	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limiters))

	// Auth endpoints
	mux.Handle("POST /api/auth/login", Wrap(ah.Login, cfg, limiters))
	mux.Handle("POST /api/auth/logout", WrapAuth(ah.Logout, user, svc, cfg, limiters))
	mux.Handle("GET /api/auth/me", WrapAuth(ah.Me, user, svc, cfg, limiters))

	// Reads
	mux.Handle("GET /api/tables", WrapAuth(th.List, user, svc, cfg, limiters))
	mux.Handle("POST /api/tables/query", WrapAuth(th.Query, user, svc, cfg, limiters))
	mux.Handle("GET /api/tables/values", WrapAuth(th.Values, user, svc, cfg, limiters))
	mux.Handle("GET /api/tables/export", WrapAuthRaw(eh.Export, user, svc, cfg, limiters))
	mux.Handle("GET /api/analytics", WrapAuth(th.Analytics, user, svc, cfg, limiters))

	// Table writes
	mux.Handle("POST /api/tables", WrapAuth(th.Create, admin, svc, cfg, limiters))
	mux.Handle("PUT /api/tables", WrapAuth(th.Replace, admin, svc, cfg, limiters))
	mux.Handle("DELETE /api/tables", WrapAuth(th.Delete, admin, svc, cfg, limiters))
	mux.Handle("PUT /api/metadata", WrapAuth(th.UpdateMetadata, admin, svc, cfg, limiters))

	// Row writes
	mux.Handle("POST /api/tables/rows", WrapAuth(rh.Add, admin, svc, cfg, limiters))
	mux.Handle("PUT /api/tables/rows", WrapAuth(rh.Update, admin, svc, cfg, limiters))
	mux.Handle("DELETE /api/tables/rows", WrapAuth(rh.Delete, admin, svc, cfg, limiters))
	mux.Handle("POST /api/tables/move", WrapAuth(rh.Move, admin, svc, cfg, limiters))
	mux.Handle("POST /api/tables/batch", WrapAuth(rh.Batch, admin, svc, cfg, limiters))

	// Imports
	mux.Handle("POST /api/tables/import", WrapAuth(ih.ImportRows, admin, svc, cfg, limiters))
	mux.Handle("POST /api/tables/import/file", WrapAuthRaw(ih.UploadFile, admin, svc, cfg, limiters))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, dto.NotFound("route").WithDetail("path", r.URL.Path))
	})

	return withMiddleware(mux)
}
