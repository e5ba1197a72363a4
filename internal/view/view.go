// Package view applies search, filters and sorting to tables for display,
// and summarizes them.
package view

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tabledesk/tabledesk/internal/tables"
)

// Field names a value a row can be filtered or sorted on.
type Field string

const (
	FieldName  Field = "name"
	FieldRank  Field = "rank"
	FieldTable Field = "table"
)

func (f Field) valid() bool {
	return f == FieldName || f == FieldRank || f == FieldTable
}

// Condition is a filter predicate.
type Condition string

const (
	Contains   Condition = "contains"
	Equals     Condition = "equals"
	StartsWith Condition = "startsWith"
	EndsWith   Condition = "endsWith"
	IsEmpty    Condition = "isEmpty"
	IsNotEmpty Condition = "isNotEmpty"
)

func (c Condition) valid() bool {
	switch c {
	case Contains, Equals, StartsWith, EndsWith, IsEmpty, IsNotEmpty:
		return true
	}
	return false
}

// Filter keeps rows whose field satisfies the condition.
type Filter struct {
	Field     Field     `json:"field"`
	Condition Condition `json:"condition"`
	Value     string    `json:"value"`
}

// active reports whether the filter takes part in matching. Value based
// conditions with a blank value are inactive.
func (f *Filter) active() bool {
	if f.Condition == IsEmpty || f.Condition == IsNotEmpty {
		return true
	}
	return strings.TrimSpace(f.Value) != ""
}

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort orders rows by a field.
type Sort struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// Query is the full display request.
type Query struct {
	Search  string   `json:"search,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
	Sort    *Sort    `json:"sort,omitempty"`
}

// Validate rejects unknown fields, conditions and directions.
func (q *Query) Validate() error {
	for i := range q.Filters {
		f := &q.Filters[i]
		if !f.Field.valid() {
			return fmt.Errorf("filter %d: unknown field %q", i, f.Field)
		}
		if !f.Condition.valid() {
			return fmt.Errorf("filter %d: unknown condition %q", i, f.Condition)
		}
	}
	if q.Sort != nil {
		if !q.Sort.Field.valid() {
			return fmt.Errorf("sort: unknown field %q", q.Sort.Field)
		}
		if q.Sort.Direction != "" && q.Sort.Direction != Asc && q.Sort.Direction != Desc {
			return fmt.Errorf("sort: unknown direction %q", q.Sort.Direction)
		}
	}
	return nil
}

// Engine applies queries. Its zero value collates with the root locale.
type Engine struct {
	lang language.Tag
}

// NewEngine returns an Engine sorting with the collation rules of lang.
func NewEngine(lang language.Tag) *Engine {
	return &Engine{lang: lang}
}

// Apply returns a copy of in with each table's rows searched, filtered and
// sorted. Table order and columns are preserved; tables left without rows
// are kept.
//
// Sorting on FieldTable leaves the order unchanged since every row of a
// table shares its name.
func (e *Engine) Apply(in []tables.Table, q Query) []tables.Table {
	// Casers and collators keep internal buffers; one per call.
	m := matcher{fold: cases.Fold()}
	term := m.fold.String(q.Search)
	var coll *collate.Collator
	if q.Sort != nil && q.Sort.Field.valid() {
		coll = collate.New(e.lang)
	}

	out := make([]tables.Table, len(in))
	for i := range in {
		t := in[i].Clone()
		data := make([]tables.Row, 0, len(t.Data))
		for _, r := range t.Data {
			if term != "" && !m.contains(r.Name(), term) && !m.contains(r.Rank(), term) {
				continue
			}
			if !m.matchAll(t.Name, r, q.Filters) {
				continue
			}
			data = append(data, r)
		}
		if coll != nil && q.Sort.Field != FieldTable {
			field, desc := q.Sort.Field, q.Sort.Direction == Desc
			slices.SortStableFunc(data, func(a, b tables.Row) int {
				c := coll.CompareString(value(t.Name, a, field), value(t.Name, b, field))
				if desc {
					return -c
				}
				return c
			})
		}
		t.Data = data
		out[i] = t
	}
	return out
}

type matcher struct {
	fold cases.Caser
}

func (m *matcher) contains(s, foldedTerm string) bool {
	return strings.Contains(m.fold.String(s), foldedTerm)
}

func (m *matcher) matchAll(tableName string, r tables.Row, filters []Filter) bool {
	for i := range filters {
		f := &filters[i]
		if !f.Field.valid() || !f.Condition.valid() || !f.active() {
			continue
		}
		if !m.match(value(tableName, r, f.Field), f) {
			return false
		}
	}
	return true
}

func (m *matcher) match(v string, f *Filter) bool {
	switch f.Condition {
	case IsEmpty:
		return strings.TrimSpace(v) == ""
	case IsNotEmpty:
		return strings.TrimSpace(v) != ""
	}
	v = m.fold.String(v)
	want := m.fold.String(f.Value)
	switch f.Condition {
	case Contains:
		return strings.Contains(v, want)
	case Equals:
		return v == want
	case StartsWith:
		return strings.HasPrefix(v, want)
	case EndsWith:
		return strings.HasSuffix(v, want)
	}
	return true
}

func value(tableName string, r tables.Row, f Field) string {
	switch f {
	case FieldName:
		return r.Name()
	case FieldRank:
		return r.Rank()
	case FieldTable:
		return tableName
	}
	return ""
}
