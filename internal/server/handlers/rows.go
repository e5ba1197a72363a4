package handlers

import (
	"context"
	"log/slog"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/tables"
)

// RowHandler handles row level writes.
type RowHandler struct {
	store *tables.Store
}

// NewRowHandler creates a new row handler.
func NewRowHandler(svc *Services) *RowHandler {
	return &RowHandler{store: svc.Tables}
}

// Add appends a row to a table.
func (h *RowHandler) Add(ctx context.Context, _ *identity.Session, req *dto.AddRowRequest) (*dto.SuccessResponse, error) {
	if err := h.store.AddRow(ctx, req.TableName, toRow(*req.Row)); err != nil {
		return nil, APIError(err)
	}
	return dto.Success, nil
}

// Update overwrites one row.
func (h *RowHandler) Update(ctx context.Context, _ *identity.Session, req *dto.UpdateRowRequest) (*dto.SuccessResponse, error) {
	if err := h.store.UpdateRow(ctx, toRef(&req.RowRef), toRow(*req.Row)); err != nil {
		return nil, APIError(err)
	}
	return dto.Success, nil
}

// Delete removes one row.
func (h *RowHandler) Delete(ctx context.Context, _ *identity.Session, req *dto.DeleteRowRequest) (*dto.SuccessResponse, error) {
	if err := h.store.DeleteRow(ctx, toRef(&req.RowRef)); err != nil {
		return nil, APIError(err)
	}
	return dto.Success, nil
}

// Move moves one row to another table, by value or by position.
func (h *RowHandler) Move(ctx context.Context, s *identity.Session, req *dto.MoveRowRequest) (*dto.SuccessResponse, error) {
	var err error
	if req.ByPosition() {
		from, to := toRef(req.From), toRef(req.To)
		err = h.store.MoveRowAt(ctx, from, to)
		if err == nil {
			slog.InfoContext(ctx, "Row moved", "from", from.String(), "to", to.String(), "user", s.User.Username)
		}
	} else {
		err = h.store.MoveRow(ctx, req.SourceTable, req.TargetTable, toRow(*req.Row))
		if err == nil {
			slog.InfoContext(ctx, "Row moved", "from", req.SourceTable, "to", req.TargetTable, "user", s.User.Username)
		}
	}
	if err != nil {
		return nil, APIError(err)
	}
	return dto.Success, nil
}

// Batch deletes or moves several rows of one table at once.
func (h *RowHandler) Batch(ctx context.Context, s *identity.Session, req *dto.BatchRequest) (*dto.SuccessResponse, error) {
	var err error
	switch req.Action {
	case dto.BatchDelete:
		err = h.store.BatchDeleteRows(ctx, req.TableName, req.Indices)
	case dto.BatchMove:
		err = h.store.BatchMoveRows(ctx, req.TableName, req.TargetTable, req.Indices)
	}
	if err != nil {
		return nil, APIError(err)
	}
	slog.InfoContext(ctx, "Batch applied", "action", req.Action, "table", req.TableName, "rows", len(req.Indices), "user", s.User.Username)
	return dto.Success, nil
}
