package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Kind is an input file format.
type Kind string

const (
	// CSV is delimited text with a header row.
	CSV Kind = "csv"
	// XLSX is a spreadsheet; the first sheet is read, header row first.
	XLSX Kind = "xlsx"
	// JSON is an array of objects or a {tables: [...]} snapshot.
	JSON Kind = "json"
)

// TableKey is the record key carrying the source table name when a snapshot
// is flattened.
const TableKey = "جۆری خشتە"

// DetectKind returns the format implied by filename's extension.
func DetectKind(filename string) (Kind, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	case ".json":
		return JSON, nil
	default:
		return "", &ParseError{Filename: filename, Err: fmt.Errorf("unsupported file type %q; use CSV, XLSX or JSON", ext)}
	}
}

// KeyValue is one field of a record.
type KeyValue struct {
	Key   string
	Value string
}

// Record is an ordered list of fields, in source column order.
type Record []KeyValue

// Get returns the value of the first field called key.
func (r Record) Get(key string) (string, bool) {
	for _, kv := range r {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	out := make([]string, len(r))
	for i, kv := range r {
		out[i] = kv.Key
	}
	return out
}

// Decode reads every record of a file of the given kind.
func Decode(kind Kind, r io.Reader) ([]Record, error) {
	switch kind {
	case CSV:
		return decodeCSV(r)
	case XLSX:
		return decodeXLSX(r)
	case JSON:
		return decodeJSON(r)
	default:
		return nil, &ParseError{Err: fmt.Errorf("unsupported file type %q", kind)}
	}
}

func decodeCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return fromRows(rows), nil
}

func decodeXLSX(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer func() {
		_ = f.Close()
	}()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Err: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return fromRows(rows), nil
}

// fromRows turns a header row plus data rows into records. Rows whose cells
// are all blank are dropped. Cells past the header get an empty key.
func fromRows(rows [][]string) []Record {
	if len(rows) == 0 {
		return []Record{}
	}
	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(Record, 0, max(len(header), len(row)))
		for i := range max(len(header), len(row)) {
			var kv KeyValue
			if i < len(header) {
				kv.Key = strings.TrimSpace(header[i])
			}
			if i < len(row) {
				kv.Value = row[i]
			}
			rec = append(rec, kv)
		}
		out = append(out, rec)
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type snapshot struct {
	Tables []struct {
		Name string            `json:"name"`
		Data []json.RawMessage `json:"data"`
	} `json:"tables"`
}

func decodeJSON(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	raw = bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\ufeff")))
	switch {
	case len(raw) > 0 && raw[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &ParseError{Err: err}
		}
		out := make([]Record, 0, len(items))
		for i, item := range items {
			rec, err := decodeObject(item)
			if err != nil {
				return nil, &ParseError{Err: fmt.Errorf("item %d: %w", i, err)}
			}
			out = append(out, rec)
		}
		return out, nil
	case len(raw) > 0 && raw[0] == '{':
		var s snapshot
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ParseError{Err: err}
		}
		if s.Tables == nil {
			return nil, &ParseError{Err: errors.New(`JSON object must have a "tables" array`)}
		}
		var out []Record
		for _, t := range s.Tables {
			for j, rowRaw := range t.Data {
				var cells []any
				d := json.NewDecoder(bytes.NewReader(rowRaw))
				d.UseNumber()
				if err := d.Decode(&cells); err != nil {
					return nil, &ParseError{Err: fmt.Errorf("table %q row %d: %w", t.Name, j, err)}
				}
				name, rank := "", ""
				if len(cells) > 0 {
					name = scalar(cells[0])
				}
				if len(cells) > 1 {
					rank = scalar(cells[1])
				}
				out = append(out, Record{{Key: "ناو", Value: name}, {Key: "ڕەتبە", Value: rank}, {Key: TableKey, Value: t.Name}})
			}
		}
		if out == nil {
			out = []Record{}
		}
		return out, nil
	default:
		return nil, &ParseError{Err: errors.New("JSON must be an array of objects or a tables snapshot")}
	}
}

// decodeObject reads a JSON object keeping its key order. An array is read
// as a record of unnamed values.
func decodeObject(raw json.RawMessage) (Record, error) {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	tok, err := d.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); ok && delim == '[' {
		var rec Record
		for d.More() {
			var v any
			if err := d.Decode(&v); err != nil {
				return nil, err
			}
			rec = append(rec, KeyValue{Value: scalar(v)})
		}
		return rec, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not an object or array")
	}
	var rec Record
	for d.More() {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v any
		if err := d.Decode(&v); err != nil {
			return nil, err
		}
		rec = append(rec, KeyValue{Key: key, Value: scalar(v)})
	}
	if _, err := d.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
