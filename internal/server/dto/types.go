// Defines shared data types for the API.

package dto

import (
	"encoding/json"
	"strconv"
)

// Row is a [name, rank] pair, encoded as a two-element array of strings.
type Row [2]string

// UnmarshalJSON requires exactly two string members.
func (r *Row) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return InvalidField("row", "must be an array of two strings")
	}
	if len(fields) != 2 {
		return InvalidField("row", "got "+strconv.Itoa(len(fields))+" fields, want 2")
	}
	*r = Row{}
	for i, f := range fields {
		if err := json.Unmarshal(f, &r[i]); err != nil {
			return InvalidField("row", "field "+strconv.Itoa(i)+" is not a string")
		}
	}
	return nil
}

// Table is a named table.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Data    []Row    `json:"data"`
}

// RowRef addresses a row by table name and zero-based position.
type RowRef struct {
	TableName string `json:"tableName"`
	RowIndex  *int   `json:"rowIndex"`
}

// Validate checks both fields are set and the index is not negative.
func (r *RowRef) Validate(prefix string) error {
	if r.TableName == "" {
		return MissingField(prefix + "tableName")
	}
	if r.RowIndex == nil {
		return MissingField(prefix + "rowIndex")
	}
	if *r.RowIndex < 0 {
		return InvalidField(prefix+"rowIndex", "must not be negative")
	}
	return nil
}

// Filter keeps rows whose field satisfies the condition.
type Filter struct {
	Field     string `json:"field"`
	Condition string `json:"condition"`
	Value     string `json:"value"`
}

// Sort orders rows by a field.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}
