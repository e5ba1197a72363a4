// Maps domain errors to API errors and writes error responses.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tabledesk/tabledesk/internal/export"
	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/importer"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/tables"
)

// internalMessage is the only text callers see for unexpected failures.
const internalMessage = "Internal server error"

const unauthenticatedMessage = "invalid or expired token"

// APIError converts err into a *dto.APIError. Errors that already carry a
// status are returned unchanged; unknown errors become a 500 wrapping err.
func APIError(err error) dto.ErrorWithStatus {
	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		return ews
	}
	var pe *importer.ParseError
	var ve *importer.ValidationError
	switch {
	case errors.As(err, &pe):
		return dto.ParseError(pe.Error()).Wrap(err)
	case errors.As(err, &ve):
		e := dto.BadRequest(ve.Error()).Wrap(err)
		if ve.Field != "" {
			e.WithDetail("field", ve.Field)
		}
		return e
	case errors.Is(err, tables.ErrTableNotFound):
		return dto.NewAPIError(http.StatusNotFound, dto.ErrorCodeTableNotFound, err.Error()).Wrap(err)
	case errors.Is(err, tables.ErrAggregateNotFound):
		return dto.NotFound("tables").Wrap(err)
	case errors.Is(err, tables.ErrTableExists):
		return dto.Conflict(err.Error()).Wrap(err)
	case errors.Is(err, tables.ErrRowIndex), errors.Is(err, tables.ErrInvalidRow), errors.Is(err, tables.ErrInvalidTable):
		return dto.BadRequest(err.Error()).Wrap(err)
	case errors.Is(err, export.ErrFormat):
		return dto.InvalidField("format", err.Error()).Wrap(err)
	case errors.Is(err, identity.ErrInvalidCredentials):
		return dto.Unauthorized("invalid username or password").Wrap(err)
	case errors.Is(err, identity.ErrUnauthenticated):
		return dto.Unauthorized(unauthenticatedMessage).Wrap(err)
	}
	return dto.InternalWithError(internalMessage, err)
}

// WriteError writes err as a JSON error response. Use this in raw
// http.HandlerFunc handlers that don't go through server.Wrap.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := APIError(err)
	level := slog.LevelInfo
	if e.StatusCode() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "Handler error", "err", err, "statusCode", e.StatusCode(), "code", e.Code())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	response := dto.ErrorResponse{Error: e.Message(), Code: e.Code(), Details: e.Details()}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode error response", "err", err)
	}
}
