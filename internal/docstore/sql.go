// Stores documents as JSON text in a single SQL table.

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

const sqlSchema = `CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	created_at TEXT NOT NULL,
	body TEXT NOT NULL
)`

const sqlIndex = `CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection, created_at)`

// createdLayout sorts lexically in insertion order.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

// SQLStore keeps documents in a "documents" table of a PostgreSQL or SQLite
// database. Filters are evaluated in Go over the collection's rows.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

type sqlRow struct {
	ID   string `db:"id"`
	Body string `db:"body"`
}

// OpenSQL connects with the given database/sql driver ("postgres" or
// "sqlite") and creates the schema if missing.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range []string{sqlSchema, sqlIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

// FindOne implements Store.
func (s *SQLStore) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	_, d, err := s.find(ctx, collection, filter)
	if err != nil {
		return err
	}
	return d.decode(out)
}

// InsertOne implements Store.
func (s *SQLStore) InsertOne(ctx context.Context, collection string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	q := s.db.Rebind("INSERT INTO documents (id, collection, created_at, body) VALUES (?, ?, ?, ?)")
	if _, err := s.db.ExecContext(ctx, q, uuid.NewString(), collection, s.stamp(), string(body)); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// UpdateOne implements Store.
func (s *SQLStore) UpdateOne(ctx context.Context, collection string, filter Filter, set Set) error {
	id, d, err := s.find(ctx, collection, filter)
	if err != nil {
		return err
	}
	if err := d.apply(set); err != nil {
		return err
	}
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	q := s.db.Rebind("UPDATE documents SET body = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, q, string(body), id)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// stamp returns a creation timestamp strictly after the previous one issued
// by this store.
func (s *SQLStore) stamp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t.Format(createdLayout)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) find(ctx context.Context, collection string, filter Filter) (string, document, error) {
	var rows []sqlRow
	q := s.db.Rebind("SELECT id, body FROM documents WHERE collection = ? ORDER BY created_at, id")
	if err := s.db.SelectContext(ctx, &rows, q, collection); err != nil {
		return "", nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	for _, r := range rows {
		var d document
		if err := json.Unmarshal([]byte(r.Body), &d); err != nil {
			return "", nil, fmt.Errorf("failed to decode document %s: %w", r.ID, err)
		}
		ok, err := d.matches(filter)
		if err != nil {
			return "", nil, err
		}
		if ok {
			return r.ID, d, nil
		}
	}
	return "", nil, ErrNotFound
}
