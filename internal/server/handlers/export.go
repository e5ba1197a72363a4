package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/tabledesk/tabledesk/internal/export"
	"github.com/tabledesk/tabledesk/internal/tables"
)

// ExportHandler serves downloads of every table.
type ExportHandler struct {
	store *tables.Store
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *Services) *ExportHandler {
	return &ExportHandler{store: svc.Tables}
}

// Export writes every table as an attachment in the format named by the
// "format" query parameter: csv (default), xlsx or json.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	agg, err := h.store.GetAggregate(ctx)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	// Encoded before any header is written; a failure is still a JSON error.
	var buf bytes.Buffer
	if err := export.Write(&buf, f, agg); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename()}))
	if _, err := buf.WriteTo(w); err != nil {
		slog.WarnContext(ctx, "Export interrupted", "err", err, "format", f)
	}
}

// writeJSON writes v with a 200 status.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "err", err)
	}
}
