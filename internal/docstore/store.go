// Package docstore provides the minimal document store used by the table and
// session services: find one, insert one and update one with $set semantics.
//
// Backends are selected by URL in Open: JSONL files (default), MongoDB,
// PostgreSQL and SQLite.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// DefaultDatabase is the database name used by backends that need one.
const DefaultDatabase = "table_manager"

// ErrNotFound is returned when no document matches a filter.
var ErrNotFound = errors.New("document not found")

// Filter matches documents whose top-level fields equal the given values.
type Filter map[string]any

// Set lists top-level fields to overwrite on the matched document.
type Set map[string]any

// Store is a collection-oriented document store.
//
// Implementations serialize individual calls but never a sequence of calls:
// a FindOne followed by UpdateOne can interleave with another writer.
type Store interface {
	// FindOne decodes the first document of collection matching filter into
	// out. It returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, collection string, filter Filter, out any) error
	// InsertOne adds doc to collection.
	InsertOne(ctx context.Context, collection string, doc any) error
	// UpdateOne overwrites the fields in set on the first document matching
	// filter. It returns ErrNotFound when nothing matches.
	UpdateOne(ctx context.Context, collection string, filter Filter, set Set) error
	// Close releases the underlying connection.
	Close() error
}

// Options configures Open.
type Options struct {
	// Database is the database name for MongoDB. Defaults to DefaultDatabase.
	Database string
}

// Open connects to the store designated by rawURL.
//
// Supported forms: mongodb:// and mongodb+srv:// URIs, postgres:// and
// postgresql:// DSNs, sqlite://PATH, file://DIR, or a bare directory path.
func Open(ctx context.Context, rawURL string, opts Options) (Store, error) {
	var s Store
	var err error
	switch {
	case rawURL == "":
		return nil, errors.New("database URL is required")
	case strings.HasPrefix(rawURL, "mongodb://"), strings.HasPrefix(rawURL, "mongodb+srv://"):
		s, err = asStore(OpenMongo(ctx, rawURL, opts.Database))
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		s, err = asStore(OpenSQL(ctx, "postgres", rawURL))
	case strings.HasPrefix(rawURL, "sqlite://"):
		s, err = asStore(OpenSQL(ctx, "sqlite", strings.TrimPrefix(rawURL, "sqlite://")))
	case strings.HasPrefix(rawURL, "file://"):
		s, err = asStore(OpenDir(strings.TrimPrefix(rawURL, "file://")))
	case strings.Contains(rawURL, "://"):
		scheme, _, _ := strings.Cut(rawURL, "://")
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	default:
		s, err = asStore(OpenDir(rawURL))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// asStore drops the concrete type so a failed open yields a nil interface.
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// document is the JSON form of a stored document, used by the file and SQL
// backends.
type document map[string]json.RawMessage

func toDocument(v any) (document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var d document
	if err := json.Unmarshal(b, &d); err != nil || d == nil {
		return nil, errors.New("document must encode to a JSON object")
	}
	return d, nil
}

// matches reports whether every filter field equals the document's field.
// Values are compared in their decoded JSON form so 1 and 1.0 are equal.
func (d document) matches(f Filter) (bool, error) {
	for k, want := range f {
		raw, ok := d[k]
		if !ok {
			return false, nil
		}
		var got any
		if err := json.Unmarshal(raw, &got); err != nil {
			return false, fmt.Errorf("failed to decode field %q: %w", k, err)
		}
		b, err := json.Marshal(want)
		if err != nil {
			return false, fmt.Errorf("failed to marshal filter field %q: %w", k, err)
		}
		var w any
		if err := json.Unmarshal(b, &w); err != nil {
			return false, err
		}
		if !reflect.DeepEqual(got, w) {
			return false, nil
		}
	}
	return true, nil
}

func (d document) apply(s Set) error {
	for k, v := range s {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		d[k] = b
	}
	return nil
}

func (d document) decode(out any) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
