package handlers

import (
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/tables"
	"github.com/tabledesk/tabledesk/internal/view"
)

func toRow(r dto.Row) tables.Row {
	return tables.Row(r)
}

func toRows(in []dto.Row) []tables.Row {
	out := make([]tables.Row, len(in))
	for i, r := range in {
		out[i] = toRow(r)
	}
	return out
}

func fromRows(in []tables.Row) []dto.Row {
	out := make([]dto.Row, len(in))
	for i, r := range in {
		out[i] = dto.Row(r)
	}
	return out
}

func toRef(r *dto.RowRef) tables.RowRef {
	return tables.RowRef{Table: r.TableName, Index: *r.RowIndex}
}

func fromTables(in []tables.Table, metadata map[string]string) *dto.TablesResponse {
	out := &dto.TablesResponse{Tables: make([]dto.Table, len(in)), Metadata: metadata}
	for i := range in {
		t := &in[i]
		out.Tables[i] = dto.Table{Name: t.Name, Columns: t.Columns, Data: fromRows(t.Data)}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}

func toQuery(req *dto.QueryTablesRequest) view.Query {
	q := view.Query{Search: req.Search, Filters: make([]view.Filter, len(req.Filters))}
	for i, f := range req.Filters {
		q.Filters[i] = view.Filter{Field: view.Field(f.Field), Condition: view.Condition(f.Condition), Value: f.Value}
	}
	if req.Sort != nil {
		q.Sort = &view.Sort{Field: view.Field(req.Sort.Field), Direction: view.Direction(req.Sort.Direction)}
	}
	return q
}

func fromSummary(s *view.Summary) *dto.AnalyticsResponse {
	out := &dto.AnalyticsResponse{
		TotalTables: s.TotalTables,
		TotalRows:   s.TotalRows,
		EmptyNames:  s.EmptyNames,
		PerTable:    make([]dto.TableCount, len(s.PerTable)),
		Ranks:       make([]dto.RankCount, len(s.Ranks)),
	}
	for i, t := range s.PerTable {
		out.PerTable[i] = dto.TableCount{Name: t.Name, Rows: t.Rows}
	}
	for i, r := range s.Ranks {
		out.Ranks[i] = dto.RankCount{Rank: r.Rank, Count: r.Count}
	}
	return out
}
