package importer

import (
	"strings"

	"github.com/tabledesk/tabledesk/internal/tables"
)

// Extractor pulls one value out of a record. ok is false when the record has
// no usable value for it, so the next extractor in a chain is tried.
type Extractor func(Record) (value string, ok bool)

// ByKey matches the first listed key present with a non-empty value.
func ByKey(keys ...string) Extractor {
	return func(r Record) (string, bool) {
		for _, k := range keys {
			if v, ok := r.Get(k); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// ByKeyFold is ByKey comparing trimmed keys case-insensitively.
func ByKeyFold(keys ...string) Extractor {
	return func(r Record) (string, bool) {
		for _, k := range keys {
			for _, kv := range r {
				if kv.Value != "" && strings.EqualFold(strings.TrimSpace(kv.Key), k) {
					return kv.Value, true
				}
			}
		}
		return "", false
	}
}

// ByPosition returns the i-th value of the record.
func ByPosition(i int) Extractor {
	return func(r Record) (string, bool) {
		if i < len(r) && r[i].Value != "" {
			return r[i].Value, true
		}
		return "", false
	}
}

// Chain returns the first value any extractor yields.
type Chain []Extractor

// Extract runs the chain.
func (c Chain) Extract(r Record) string {
	for _, e := range c {
		if v, ok := e(r); ok {
			return v
		}
	}
	return ""
}

// Normalizer maps records to rows.
type Normalizer struct {
	Name Chain
	Rank Chain
}

// DefaultNormalizer recognizes the native column labels, then English
// aliases, then falls back to the first and second values.
var DefaultNormalizer = Normalizer{
	Name: Chain{ByKey("ناو", "name", "Name"), ByKeyFold("name", "full name", "fullname"), ByPosition(0)},
	Rank: Chain{ByKey("ڕەتبە", "rank", "Rank"), ByKeyFold("rank", "grade"), ByPosition(1)},
}

// Normalize converts records to trimmed rows, dropping rows whose fields are
// both empty.
func (n *Normalizer) Normalize(records []Record) []tables.Row {
	out := make([]tables.Row, 0, len(records))
	for _, r := range records {
		row := tables.NewRow(strings.TrimSpace(n.Name.Extract(r)), strings.TrimSpace(n.Rank.Extract(r)))
		if row.Name() == "" && row.Rank() == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}

// CleanRows trims already-shaped rows and drops empty ones.
func CleanRows(rows []tables.Row) []tables.Row {
	out := make([]tables.Row, 0, len(rows))
	for _, r := range rows {
		r = tables.NewRow(strings.TrimSpace(r.Name()), strings.TrimSpace(r.Rank()))
		if r.Name() == "" && r.Rank() == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
