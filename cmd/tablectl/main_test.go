package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tabledesk/tabledesk/internal/export"
	"github.com/tabledesk/tabledesk/internal/tables"
	"github.com/tabledesk/tabledesk/internal/view"
)

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{"--config", filepath.Join(dir, "missing.yaml"), "--db", filepath.Join(dir, "db")}
	cmd.SetArgs(append(args, base...))
	if err := cmd.ExecuteContext(t.Context()); err != nil {
		t.Fatalf("tablectl %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestImportExportQuery(t *testing.T) {
	dir := t.TempDir()
	first := tables.Seed().Tables[0].Name
	csvPath := filepath.Join(dir, "people.csv")
	if err := os.WriteFile(csvPath, []byte("name,rank\nHana,5\nAram,\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out := run(t, dir, "import", csvPath, "--table", first, "--dry-run")
	if !strings.Contains(out, "dry run: 2 rows") {
		t.Errorf("dry run output:\n%s", out)
	}
	out = run(t, dir, "import", csvPath, "--table", first, "--mode", "replace")
	if !strings.Contains(out, "imported 2 rows") {
		t.Errorf("import output:\n%s", out)
	}

	var snap export.Snapshot
	if err := json.Unmarshal([]byte(run(t, dir, "export", "-f", "json", "-o", "-")), &snap); err != nil {
		t.Fatal(err)
	}
	want := []tables.Row{{"Hana", "5"}, {"Aram", ""}}
	if diff := cmp.Diff(want, snap.Tables[0].Data); diff != "" {
		t.Errorf("exported rows (-want +got):\n%s", diff)
	}

	var got []tables.Table
	out = run(t, dir, "query", "--filter", "rank:isEmpty", "--sort", "name:desc", "--json")
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]tables.Row{{"Aram", ""}}, got[0].Data); diff != "" {
		t.Errorf("query rows (-want +got):\n%s", diff)
	}

	xlsx := filepath.Join(dir, "out.xlsx")
	run(t, dir, "export", "--format", "xlsx", "--output", xlsx)
	if fi, err := os.Stat(xlsx); err != nil || fi.Size() == 0 {
		t.Errorf("xlsx export: %v", err)
	}
}

func TestParseQuery(t *testing.T) {
	q, err := parseQuery("ha", []string{"name:startsWith:a:b", "rank:isEmpty"}, "rank:desc")
	if err != nil {
		t.Fatal(err)
	}
	want := view.Query{
		Search: "ha",
		Filters: []view.Filter{
			{Field: view.FieldName, Condition: view.StartsWith, Value: "a:b"},
			{Field: view.FieldRank, Condition: view.IsEmpty},
		},
		Sort: &view.Sort{Field: view.FieldRank, Direction: view.Desc},
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("query (-want +got):\n%s", diff)
	}
	for _, bad := range [][]string{{"name"}, {"colour:equals:x"}, {"name:matches:x"}} {
		if _, err := parseQuery("", bad, ""); err == nil {
			t.Errorf("parseQuery(%q) succeeded", bad)
		}
	}
	if _, err := parseQuery("", nil, "name:up"); err == nil {
		t.Error("parseQuery accepted sort direction up")
	}
}
