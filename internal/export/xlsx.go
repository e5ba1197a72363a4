package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tabledesk/tabledesk/internal/tables"
)

const maxSheetName = 31

// WriteXLSX writes a workbook with one right-to-left sheet per table, header
// row in bold.
func WriteXLSX(w io.Writer, ts []tables.Table) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	rtl := true
	first := f.GetSheetName(0)
	used := map[string]bool{}
	for i, t := range ts {
		name := SheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return fmt.Errorf("sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
		if err := f.SetSheetView(name, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return err
		}
		header := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			header[j] = c
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			return err
		}
		for j, r := range t.Data {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			row := []any{r.Name(), r.Rank()}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

// SheetName turns a table name into a unique, valid worksheet name and marks
// it used.
func SheetName(table string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.Trim(strings.TrimSpace(table), "'"))
	if base == "" {
		base = "Sheet"
	}
	base = truncate(base, maxSheetName)
	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, maxSheetName-len([]rune(suffix))) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
