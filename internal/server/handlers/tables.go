package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/tables"
	"github.com/tabledesk/tabledesk/internal/view"
)

// TableHandler handles reads and table level writes.
type TableHandler struct {
	store *tables.Store
	view  *view.Engine
}

// NewTableHandler creates a new table handler.
func NewTableHandler(svc *Services) *TableHandler {
	return &TableHandler{store: svc.Tables, view: svc.View}
}

// List returns every table and the metadata, seeding them on first use.
func (h *TableHandler) List(ctx context.Context, _ *identity.Session, req *dto.ListTablesRequest) (*dto.TablesResponse, error) {
	agg, err := h.store.GetAggregate(ctx)
	if err != nil {
		return nil, APIError(err)
	}
	return fromTables(agg.Tables, agg.Metadata), nil
}

// Query returns every table with its rows searched, filtered and sorted.
func (h *TableHandler) Query(ctx context.Context, _ *identity.Session, req *dto.QueryTablesRequest) (*dto.TablesResponse, error) {
	q := toQuery(req)
	if err := q.Validate(); err != nil {
		return nil, dto.BadRequest(err.Error())
	}
	agg, err := h.store.GetAggregate(ctx)
	if err != nil {
		return nil, APIError(err)
	}
	return fromTables(h.view.Apply(agg.Tables, q), agg.Metadata), nil
}

// Values lists the distinct values of a field across every table.
func (h *TableHandler) Values(ctx context.Context, _ *identity.Session, req *dto.ListValuesRequest) (*dto.ValuesResponse, error) {
	field := view.Field(req.Field)
	switch field {
	case view.FieldName, view.FieldRank, view.FieldTable:
	default:
		return nil, dto.InvalidField("field", "must be name, rank or table")
	}
	agg, err := h.store.GetAggregate(ctx)
	if err != nil {
		return nil, APIError(err)
	}
	return &dto.ValuesResponse{Field: req.Field, Values: h.view.Distinct(agg.Tables, field)}, nil
}

// Analytics summarizes every table.
func (h *TableHandler) Analytics(ctx context.Context, _ *identity.Session, req *dto.AnalyticsRequest) (*dto.AnalyticsResponse, error) {
	agg, err := h.store.GetAggregate(ctx)
	if err != nil {
		return nil, APIError(err)
	}
	s := view.Summarize(agg.Tables)
	return fromSummary(&s), nil
}

// Create appends a table.
func (h *TableHandler) Create(ctx context.Context, s *identity.Session, req *dto.CreateTableRequest) (*dto.SuccessResponse, error) {
	t := tables.Table{Name: strings.TrimSpace(req.Name), Columns: req.Columns, Data: toRows(req.Data)}
	if err := h.store.AppendTable(ctx, t); err != nil {
		return nil, APIError(err)
	}
	slog.InfoContext(ctx, "Table created", "table", t.Name, "rows", len(t.Data), "user", s.User.Username)
	return dto.Success, nil
}

// Replace replaces every row of a table.
func (h *TableHandler) Replace(ctx context.Context, s *identity.Session, req *dto.ReplaceTableRequest) (*dto.SuccessResponse, error) {
	if err := h.store.ReplaceTableData(ctx, req.TableName, toRows(req.Data)); err != nil {
		return nil, APIError(err)
	}
	slog.InfoContext(ctx, "Table replaced", "table", req.TableName, "rows", len(req.Data), "user", s.User.Username)
	return dto.Success, nil
}

// Delete removes a table.
func (h *TableHandler) Delete(ctx context.Context, s *identity.Session, req *dto.DeleteTableRequest) (*dto.SuccessResponse, error) {
	if err := h.store.RemoveTable(ctx, req.TableName); err != nil {
		return nil, APIError(err)
	}
	slog.InfoContext(ctx, "Table deleted", "table", req.TableName, "user", s.User.Username)
	return dto.Success, nil
}

// UpdateMetadata merges keys into the metadata.
func (h *TableHandler) UpdateMetadata(ctx context.Context, s *identity.Session, req *dto.UpdateMetadataRequest) (*dto.SuccessResponse, error) {
	if err := h.store.MergeMetadata(ctx, req.Metadata); err != nil {
		return nil, APIError(err)
	}
	slog.InfoContext(ctx, "Metadata updated", "keys", len(req.Metadata), "user", s.User.Username)
	return dto.Success, nil
}
