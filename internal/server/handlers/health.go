package handlers

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/tabledesk/tabledesk/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
	ping    func(ctx context.Context) error
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *Services, cfg *Config) *HealthHandler {
	return &HealthHandler{version: cfg.Version, ping: svc.Ping}
}

// Health reports the version and whether the document store answers.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	resp := &dto.HealthResponse{Status: "ok", Version: h.version, GoVersion: runtime.Version(), Database: "ok"}
	if h.ping == nil {
		resp.Database = "unknown"
	} else if err := h.ping(ctx); err != nil {
		slog.WarnContext(ctx, "Document store unavailable", "err", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
	}
	return resp, nil
}
