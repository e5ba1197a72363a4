package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/importer"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/server/reqctx"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// ImportHandler handles imports.
type ImportHandler struct {
	pipeline *importer.Pipeline
}

// NewImportHandler creates a new import handler.
func NewImportHandler(svc *Services) *ImportHandler {
	return &ImportHandler{pipeline: svc.Importer}
}

// ImportRows merges rows a client already parsed into a table.
func (h *ImportHandler) ImportRows(ctx context.Context, s *identity.Session, req *dto.ImportRowsRequest) (*dto.ImportResponse, error) {
	n, err := h.pipeline.ImportRows(ctx, req.TableName, toRows(req.Data), req.Mode)
	if err != nil {
		return nil, APIError(err)
	}
	slog.InfoContext(ctx, "Rows imported", "table", req.TableName, "rows", n, "mode", req.Mode, "user", s.User.Username)
	return &dto.ImportResponse{Success: true, Imported: n}, nil
}

// UploadFile imports a multipart "file" field into the "tableName" table.
// The "mode" field selects append or replace. With dryRun=true, as a form
// field or query parameter, the file is parsed and previewed but nothing is
// written.
func (h *ImportHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			WriteError(w, r, dto.PayloadTooLarge(mbe.Limit))
			return
		}
		WriteError(w, r, dto.BadRequest("expected a multipart/form-data body").Wrap(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, r, dto.MissingField("file"))
		return
	}
	defer func() { _ = file.Close() }()

	dryRun := false
	if v := r.FormValue("dryRun"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			WriteError(w, r, dto.InvalidField("dryRun", "must be true or false"))
			return
		}
	}

	res, err := h.pipeline.Import(ctx, importer.Request{
		TableName: r.FormValue("tableName"),
		Filename:  header.Filename,
		Mode:      r.FormValue("mode"),
		Body:      file,
		DryRun:    dryRun,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if !dryRun {
		user := ""
		if u := reqctx.User(ctx); u != nil {
			user = u.Username
		}
		slog.InfoContext(ctx, "File imported", "file", header.Filename, "kind", res.Kind, "rows", res.Imported, "user", user)
	}
	writeJSON(w, r, &dto.ImportResponse{
		Success:  true,
		Imported: res.Imported,
		DryRun:   dryRun,
		Kind:     string(res.Kind),
		Columns:  res.Columns,
		Records:  res.Records,
		Preview:  fromRows(res.Preview),
	})
}
