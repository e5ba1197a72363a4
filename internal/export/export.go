// Package export writes the aggregate as a downloadable CSV, XLSX or JSON
// file.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tabledesk/tabledesk/internal/tables"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	JSON Format = "json"
)

// ErrFormat is returned for an unknown format name.
var ErrFormat = errors.New("unknown export format")

// ParseFormat maps a format name to a Format. The empty string is CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return CSV, nil
	case CSV, XLSX, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q; use csv, xlsx or json", ErrFormat, s)
	}
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case JSON:
		return "application/json; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename is the suggested download name.
func (f Format) Filename() string {
	return "tables_data." + string(f)
}

// Write encodes agg to w.
func Write(w io.Writer, f Format, agg *tables.Aggregate) error {
	switch f {
	case CSV:
		return WriteCSV(w, agg.Tables)
	case XLSX:
		return WriteXLSX(w, agg.Tables)
	case JSON:
		return WriteJSON(w, agg)
	default:
		return fmt.Errorf("%w %q", ErrFormat, f)
	}
}

// WriteCSV writes each table as its name, its column header and its rows,
// with a blank line between tables.
func WriteCSV(w io.Writer, ts []tables.Table) error {
	cw := csv.NewWriter(w)
	for i, t := range ts {
		if i > 0 {
			if err := cw.Write(nil); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{t.Name}); err != nil {
			return err
		}
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
		for _, r := range t.Data {
			if err := cw.Write(r[:]); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Snapshot is the JSON export shape. The importer reads it back.
type Snapshot struct {
	Tables   []tables.Table    `json:"tables"`
	Metadata map[string]string `json:"metadata"`
}

// WriteJSON writes agg as an indented Snapshot.
func WriteJSON(w io.Writer, agg *tables.Aggregate) error {
	s := Snapshot{Tables: agg.Tables, Metadata: agg.Metadata}
	if s.Tables == nil {
		s.Tables = []tables.Table{}
	}
	if s.Metadata == nil {
		s.Metadata = map[string]string{}
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(&s)
}
