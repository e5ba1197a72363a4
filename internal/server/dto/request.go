package dto

import "strings"

// --- Auth ---

// LoginRequest is a request to log in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the login request fields.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return MissingField("username")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// LogoutRequest is a request to end the current session.
type LogoutRequest struct{}

// Validate is a no-op for LogoutRequest.
func (r *LogoutRequest) Validate() error {
	return nil
}

// GetMeRequest is a request to get the current session.
type GetMeRequest struct{}

// Validate is a no-op for GetMeRequest.
func (r *GetMeRequest) Validate() error {
	return nil
}

// --- Health ---

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// --- Reads ---

// ListTablesRequest is a request for every table and the metadata.
type ListTablesRequest struct{}

// Validate is a no-op for ListTablesRequest.
func (r *ListTablesRequest) Validate() error {
	return nil
}

// QueryTablesRequest is a request for a searched, filtered and sorted view.
type QueryTablesRequest struct {
	Search  string   `json:"search,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
	Sort    *Sort    `json:"sort,omitempty"`
}

// Validate checks that filters and the sort name a field.
func (r *QueryTablesRequest) Validate() error {
	for _, f := range r.Filters {
		if f.Field == "" {
			return MissingField("filters.field")
		}
		if f.Condition == "" {
			return MissingField("filters.condition")
		}
	}
	if r.Sort != nil && r.Sort.Field == "" {
		return MissingField("sort.field")
	}
	return nil
}

// AnalyticsRequest is a request for the row summary.
type AnalyticsRequest struct{}

// Validate is a no-op for AnalyticsRequest.
func (r *AnalyticsRequest) Validate() error {
	return nil
}

// ListValuesRequest is a request for the distinct values of a field.
type ListValuesRequest struct {
	Field string `query:"field"`
}

// Validate validates the list values request fields.
func (r *ListValuesRequest) Validate() error {
	if r.Field == "" {
		return MissingField("field")
	}
	return nil
}

// --- Tables ---

// CreateTableRequest is a request to append a table.
type CreateTableRequest struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns,omitempty"`
	Data    []Row    `json:"data,omitempty"`
}

// Validate validates the create table request fields.
func (r *CreateTableRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	return nil
}

// ReplaceTableRequest is a request to replace all rows of a table.
type ReplaceTableRequest struct {
	TableName string `json:"tableName"`
	Data      []Row  `json:"data"`
}

// Validate validates the replace table request fields.
func (r *ReplaceTableRequest) Validate() error {
	if r.TableName == "" {
		return MissingField("tableName")
	}
	if r.Data == nil {
		return MissingField("data")
	}
	return nil
}

// DeleteTableRequest is a request to remove a table. The name is read from
// the body or from the tableName query parameter.
type DeleteTableRequest struct {
	TableName string `json:"tableName" query:"tableName"`
}

// Validate validates the delete table request fields.
func (r *DeleteTableRequest) Validate() error {
	if r.TableName == "" {
		return MissingField("tableName")
	}
	return nil
}

// --- Rows ---

// AddRowRequest is a request to append one row to a table.
type AddRowRequest struct {
	TableName string `json:"tableName"`
	Row       *Row   `json:"row"`
}

// Validate validates the add row request fields.
func (r *AddRowRequest) Validate() error {
	if r.TableName == "" {
		return MissingField("tableName")
	}
	if r.Row == nil {
		return MissingField("row")
	}
	return nil
}

// UpdateRowRequest is a request to overwrite one row.
type UpdateRowRequest struct {
	RowRef
	Row *Row `json:"row"`
}

// Validate validates the update row request fields.
func (r *UpdateRowRequest) Validate() error {
	if err := r.RowRef.Validate(""); err != nil {
		return err
	}
	if r.Row == nil {
		return MissingField("row")
	}
	return nil
}

// DeleteRowRequest is a request to remove one row.
type DeleteRowRequest struct {
	RowRef
}

// Validate validates the delete row request fields.
func (r *DeleteRowRequest) Validate() error {
	return r.RowRef.Validate("")
}

// MoveRowRequest moves one row to another table. The row is addressed either
// by value (sourceTable, targetTable, row) or by position (from, to).
type MoveRowRequest struct {
	SourceTable string  `json:"sourceTable,omitempty"`
	TargetTable string  `json:"targetTable,omitempty"`
	Row         *Row    `json:"row,omitempty"`
	From        *RowRef `json:"from,omitempty"`
	To          *RowRef `json:"to,omitempty"`
}

// ByPosition reports whether the row is addressed by from and to.
func (r *MoveRowRequest) ByPosition() bool {
	return r.From != nil || r.To != nil
}

// Validate validates the move request fields.
func (r *MoveRowRequest) Validate() error {
	if r.ByPosition() {
		if r.Row != nil || r.SourceTable != "" || r.TargetTable != "" {
			return BadRequest("use either from/to or sourceTable/targetTable/row")
		}
		if r.From == nil {
			return MissingField("from")
		}
		if r.To == nil {
			return MissingField("to")
		}
		if err := r.From.Validate("from."); err != nil {
			return err
		}
		return r.To.Validate("to.")
	}
	if r.SourceTable == "" {
		return MissingField("sourceTable")
	}
	if r.TargetTable == "" {
		return MissingField("targetTable")
	}
	if r.Row == nil {
		return MissingField("row")
	}
	return nil
}

// Batch actions.
const (
	BatchDelete = "delete"
	BatchMove   = "move"
)

// BatchRequest deletes or moves several rows of one table.
type BatchRequest struct {
	Action      string `json:"action"`
	TableName   string `json:"tableName"`
	TargetTable string `json:"targetTable,omitempty"`
	Indices     []int  `json:"indices"`
}

// Validate validates the batch request fields.
func (r *BatchRequest) Validate() error {
	switch r.Action {
	case BatchDelete:
	case BatchMove:
		if r.TargetTable == "" {
			return MissingField("targetTable")
		}
	case "":
		return MissingField("action")
	default:
		return InvalidField("action", "must be delete or move")
	}
	if r.TableName == "" {
		return MissingField("tableName")
	}
	if len(r.Indices) == 0 {
		return MissingField("indices")
	}
	return nil
}

// --- Import ---

// ImportRowsRequest merges rows a client already parsed.
type ImportRowsRequest struct {
	TableName string `json:"tableName"`
	Data      []Row  `json:"data"`
	Mode      string `json:"mode,omitempty"` // append (default) or replace
}

// Validate validates the import request fields.
func (r *ImportRowsRequest) Validate() error {
	if r.TableName == "" {
		return MissingField("tableName")
	}
	if r.Data == nil {
		return MissingField("data")
	}
	return nil
}

// --- Metadata ---

// UpdateMetadataRequest merges keys into the metadata.
type UpdateMetadataRequest struct {
	Metadata map[string]string `json:"metadata"`
}

// Validate validates the metadata request fields.
func (r *UpdateMetadataRequest) Validate() error {
	if r.Metadata == nil {
		return MissingField("metadata")
	}
	return nil
}
