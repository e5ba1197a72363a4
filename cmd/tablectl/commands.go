package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tabledesk/tabledesk/internal/export"
	"github.com/tabledesk/tabledesk/internal/importer"
	"github.com/tabledesk/tabledesk/internal/tables"
	"github.com/tabledesk/tabledesk/internal/view"
)

func newImportCmd(g *globals) *cobra.Command {
	var tableName, mode string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV, XLSX or JSON file into a table",
		Long: `Import rows from a file into an existing table.

The file kind is detected from its extension. Rows are normalized to
[name, rank]; rows with neither are dropped. With --dry-run the file is
parsed and previewed without touching the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			db, store, err := g.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if _, err := store.GetAggregate(ctx); err != nil {
				return err
			}

			res, err := importer.NewPipeline(store).Import(ctx, importer.Request{
				TableName: tableName,
				Filename:  filepath.Base(args[0]),
				Mode:      mode,
				Body:      f,
				DryRun:    dryRun,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d records, columns %s\n", res.Kind, res.Records, strings.Join(res.Columns, ", "))
			if dryRun {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, r := range res.Preview {
					fmt.Fprintf(tw, "%s\t%s\n", r.Name(), r.Rank())
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "dry run: %d rows would be imported into %q\n", len(res.Rows()), tableName)
				return nil
			}
			fmt.Fprintf(out, "imported %d rows into %q\n", res.Imported, tableName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tableName, "table", "t", "", "Target table (required)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(tables.ModeAppend), "append or replace")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and preview without writing")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newExportCmd(g *globals) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every table as CSV, XLSX or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			db, store, err := g.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			agg, err := store.GetAggregate(ctx)
			if err != nil {
				return err
			}

			if output == "" {
				output = f.Filename()
			}
			if output == "-" {
				return export.Write(cmd.OutOrStdout(), f, agg)
			}
			if err := writeFile(output, f, agg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d tables to %s\n", len(agg.Tables), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv, xlsx or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default tables_data.<ext>)")
	return cmd
}

// writeFile exports agg to path. A failed close is reported since it may
// drop buffered data.
func writeFile(path string, f export.Format, agg *tables.Aggregate) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := file.Close(); err == nil {
			err = err2
		}
	}()
	return export.Write(file, f, agg)
}

func newQueryCmd(g *globals) *cobra.Command {
	var search, sortBy string
	var filters []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search, filter and sort rows",
		Long: `Print the rows of every table after applying a search term, filters
and a sort order.

Filters are field:condition[:value], e.g. name:startsWith:ha or rank:isEmpty.
Fields are name, rank and table. Sort is field or field:desc.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := parseQuery(search, filters, sortBy)
			if err != nil {
				return err
			}
			db, store, err := g.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			agg, err := store.GetAggregate(ctx)
			if err != nil {
				return err
			}
			result := view.NewEngine(g.cfg.Language()).Apply(agg.Tables, q)
			return printTables(cmd.OutOrStdout(), result, asJSON)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive term matched against name and rank")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field:condition[:value], repeatable")
	cmd.Flags().StringVar(&sortBy, "sort", "", "field[:asc|desc]")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func parseQuery(search string, filters []string, sortBy string) (view.Query, error) {
	q := view.Query{Search: search}
	for _, s := range filters {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) < 2 {
			return q, fmt.Errorf("filter %q: want field:condition[:value]", s)
		}
		f := view.Filter{Field: view.Field(parts[0]), Condition: view.Condition(parts[1])}
		if len(parts) == 3 {
			f.Value = parts[2]
		}
		q.Filters = append(q.Filters, f)
	}
	if sortBy != "" {
		field, dir, _ := strings.Cut(sortBy, ":")
		q.Sort = &view.Sort{Field: view.Field(field), Direction: view.Direction(dir)}
	}
	return q, q.Validate()
}

func printTables(w io.Writer, ts []tables.Table, asJSON bool) error {
	if asJSON {
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(ts)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range ts {
		if len(t.Data) == 0 {
			continue
		}
		fmt.Fprintf(tw, "# %s (%d)\n", t.Name, len(t.Data))
		for _, r := range t.Data {
			fmt.Fprintf(tw, "%s\t%s\n", r.Name(), r.Rank())
		}
	}
	return tw.Flush()
}
