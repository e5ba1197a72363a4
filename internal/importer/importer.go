// Package importer parses CSV, XLSX and JSON files into [name, rank] rows and
// merges them into a table.
package importer

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/tabledesk/tabledesk/internal/tables"
)

// PreviewRows is how many normalized rows a Result carries for display.
const PreviewRows = 5

// Merger stores imported rows.
type Merger interface {
	ImportRows(ctx context.Context, tableName string, rows []tables.Row, mode tables.Mode) error
}

// Pipeline parses import files and merges the rows through a Merger.
type Pipeline struct {
	merger     Merger
	normalizer *Normalizer
}

// NewPipeline returns a Pipeline using DefaultNormalizer.
func NewPipeline(m Merger) *Pipeline {
	return &Pipeline{merger: m, normalizer: &DefaultNormalizer}
}

// Request is a file import.
type Request struct {
	TableName string
	Filename  string
	Mode      string
	Body      io.Reader
	// DryRun parses and normalizes without writing.
	DryRun bool
}

// Result describes a parsed file and what was imported from it.
type Result struct {
	Kind     Kind         `json:"kind"`
	Columns  []string     `json:"columns"`
	Records  int          `json:"records"`
	Imported int          `json:"imported"`
	Preview  []tables.Row `json:"preview"`

	rows []tables.Row
}

// Rows returns every normalized row.
func (r *Result) Rows() []tables.Row {
	return r.rows
}

// Parse detects the file kind from filename, decodes body and normalizes the
// records. It does not require any row to survive normalization.
func (p *Pipeline) Parse(filename string, body io.Reader) (*Result, error) {
	kind, err := DetectKind(filename)
	if err != nil {
		return nil, err
	}
	records, err := Decode(kind, body)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && pe.Filename == "" {
			pe.Filename = filename
		}
		return nil, err
	}
	res := &Result{Kind: kind, Columns: []string{}, Records: len(records)}
	if len(records) > 0 {
		res.Columns = records[0].Keys()
	}
	res.rows = p.normalizer.Normalize(records)
	res.Preview = res.rows[:min(PreviewRows, len(res.rows))]
	return res, nil
}

// Import parses the file in req and merges its rows into req.TableName.
func (p *Pipeline) Import(ctx context.Context, req Request) (*Result, error) {
	mode, err := validateTarget(req.TableName, req.Mode)
	if err != nil {
		return nil, err
	}
	res, err := p.Parse(req.Filename, req.Body)
	if err != nil {
		return nil, err
	}
	if len(res.rows) == 0 {
		return nil, &ValidationError{Message: "the file contains no rows with a name or rank"}
	}
	if req.DryRun {
		return res, nil
	}
	if err := p.merger.ImportRows(ctx, req.TableName, res.rows, mode); err != nil {
		return nil, err
	}
	res.Imported = len(res.rows)
	return res, nil
}

// ImportRows merges rows that were already shaped by a client, trimming them
// and dropping empty ones first. It returns the number of rows imported.
func (p *Pipeline) ImportRows(ctx context.Context, tableName string, rows []tables.Row, mode string) (int, error) {
	m, err := validateTarget(tableName, mode)
	if err != nil {
		return 0, err
	}
	rows = CleanRows(rows)
	if len(rows) == 0 {
		return 0, &ValidationError{Field: "data", Message: "no rows with a name or rank"}
	}
	if err := p.merger.ImportRows(ctx, tableName, rows, m); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func validateTarget(tableName, mode string) (tables.Mode, error) {
	if strings.TrimSpace(tableName) == "" {
		return "", &ValidationError{Field: "tableName", Message: "no target table selected"}
	}
	m, err := tables.ParseMode(mode)
	if err != nil {
		return "", &ValidationError{Field: "mode", Message: err.Error()}
	}
	return m, nil
}
