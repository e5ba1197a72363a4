// Package tables implements the aggregate document holding every named table
// and the read-modify-write operations over it.
package tables

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// Collection is the document collection holding the aggregate.
	Collection = "tables"
	// AggregateType identifies the single aggregate document.
	AggregateType = "main"
)

// DefaultColumns are the column labels of a table created without any.
var DefaultColumns = []string{"ناو", "ڕەتبە"}

var (
	// ErrInvalidRow is returned when a row does not decode to two strings.
	ErrInvalidRow = errors.New("invalid row")
	// ErrInvalidTable is returned when a table cannot be stored as given.
	ErrInvalidTable = errors.New("invalid table")
)

// Row is a fixed-arity [name, rank] record, encoded as a two-element array.
type Row [2]string

// NewRow returns a Row.
func NewRow(name, rank string) Row {
	return Row{name, rank}
}

// Name returns the first field.
func (r Row) Name() string {
	return r[0]
}

// Rank returns the second field.
func (r Row) Rank() string {
	return r[1]
}

// UnmarshalJSON requires exactly two string members.
func (r *Row) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("%w: must be an array of two strings", ErrInvalidRow)
	}
	if len(fields) != 2 {
		return fmt.Errorf("%w: got %d fields, want 2", ErrInvalidRow, len(fields))
	}
	*r = Row{}
	for i, f := range fields {
		if err := json.Unmarshal(f, &r[i]); err != nil {
			return fmt.Errorf("%w: field %d is not a string", ErrInvalidRow, i)
		}
	}
	return nil
}

// Table is a named, ordered list of rows.
type Table struct {
	Name    string   `json:"name" bson:"name"`
	Columns []string `json:"columns" bson:"columns"`
	Data    []Row    `json:"data" bson:"data"`
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() Table {
	return Table{
		Name:    t.Name,
		Columns: slices.Clone(t.Columns),
		Data:    slices.Clone(t.Data),
	}
}

// Validate checks the table can be stored.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTable)
	}
	return nil
}

func (t *Table) normalize() {
	if len(t.Columns) == 0 {
		t.Columns = slices.Clone(DefaultColumns)
	}
	if t.Data == nil {
		t.Data = []Row{}
	}
}

// Aggregate is the single persisted document holding every table and the
// free-form metadata shown above them.
type Aggregate struct {
	Type     string            `json:"type" bson:"type"`
	Tables   []Table           `json:"tables" bson:"tables"`
	Metadata map[string]string `json:"metadata" bson:"metadata"`
}

// Index returns the position of the table called name, or -1.
func (a *Aggregate) Index(name string) int {
	return slices.IndexFunc(a.Tables, func(t Table) bool { return t.Name == name })
}

// Table returns the table called name.
func (a *Aggregate) Table(name string) (*Table, error) {
	i := a.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return &a.Tables[i], nil
}

// Clone returns a deep copy of the aggregate.
func (a *Aggregate) Clone() Aggregate {
	c := Aggregate{Type: a.Type, Tables: make([]Table, len(a.Tables)), Metadata: make(map[string]string, len(a.Metadata))}
	for i := range a.Tables {
		c.Tables[i] = a.Tables[i].Clone()
	}
	for k, v := range a.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// RowCount returns the number of rows across every table.
func (a *Aggregate) RowCount() int {
	n := 0
	for _, t := range a.Tables {
		n += len(t.Data)
	}
	return n
}

func (a *Aggregate) normalize() {
	if a.Tables == nil {
		a.Tables = []Table{}
	}
	for i := range a.Tables {
		a.Tables[i].normalize()
	}
	if a.Metadata == nil {
		a.Metadata = map[string]string{}
	}
}

// RowRef addresses a row by table name and zero-based position.
type RowRef struct {
	Table string `json:"tableName"`
	Index int    `json:"rowIndex"`
}

func (r RowRef) String() string {
	return fmt.Sprintf("%s[%d]", r.Table, r.Index)
}

// Mode selects how imported rows merge into a table.
type Mode string

const (
	// ModeAppend concatenates imported rows after the existing ones.
	ModeAppend Mode = "append"
	// ModeReplace discards existing rows first.
	ModeReplace Mode = "replace"
)

// ParseMode validates s. An empty string means ModeAppend.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAppend:
		return ModeAppend, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}
