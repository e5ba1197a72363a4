package view

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"

	"github.com/tabledesk/tabledesk/internal/tables"
)

// TableCount is the row count of one table.
type TableCount struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// RankCount is how many rows carry a rank.
type RankCount struct {
	Rank  string `json:"rank"`
	Count int    `json:"count"`
}

// Summary aggregates the rows of every table.
type Summary struct {
	TotalTables int          `json:"totalTables"`
	TotalRows   int          `json:"totalRows"`
	EmptyNames  int          `json:"emptyNames"`
	PerTable    []TableCount `json:"perTable"`
	Ranks       []RankCount  `json:"ranks"`
}

// Summarize counts rows per table and per rank. Ranks are ordered by
// descending count, then by rank. Blank ranks are not counted.
func Summarize(in []tables.Table) Summary {
	s := Summary{TotalTables: len(in), PerTable: make([]TableCount, 0, len(in)), Ranks: []RankCount{}}
	byRank := map[string]int{}
	for _, t := range in {
		s.PerTable = append(s.PerTable, TableCount{Name: t.Name, Rows: len(t.Data)})
		s.TotalRows += len(t.Data)
		for _, r := range t.Data {
			if strings.TrimSpace(r.Name()) == "" {
				s.EmptyNames++
			}
			if rank := strings.TrimSpace(r.Rank()); rank != "" {
				byRank[rank]++
			}
		}
	}
	for rank, n := range byRank {
		s.Ranks = append(s.Ranks, RankCount{Rank: rank, Count: n})
	}
	slices.SortFunc(s.Ranks, func(a, b RankCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Rank, b.Rank)
	})
	return s
}

// Distinct returns the sorted non-blank values of field across in, as used to
// populate filter choices.
func (e *Engine) Distinct(in []tables.Table, field Field) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range in {
		if field == FieldTable {
			if _, ok := seen[t.Name]; !ok && strings.TrimSpace(t.Name) != "" {
				seen[t.Name] = struct{}{}
				out = append(out, t.Name)
			}
			continue
		}
		for _, r := range t.Data {
			v := value(t.Name, r, field)
			if _, ok := seen[v]; ok || strings.TrimSpace(v) == "" {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	collate.New(e.lang).SortStrings(out)
	return out
}
