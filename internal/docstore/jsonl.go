// Stores collections as JSONL files with a full in-memory cache.

package docstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirStore keeps each collection in DIR/<collection>.jsonl.
//
// Files are loaded on first access and cached. Inserts append a line; updates
// rewrite the whole file.
type DirStore struct {
	dir string

	mu          sync.Mutex
	collections map[string]*collection
}

// OpenDir returns a DirStore rooted at dir, creating it if needed.
func OpenDir(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directory
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &DirStore{dir: dir, collections: map[string]*collection{}}, nil
}

// FindOne implements Store.
func (s *DirStore) FindOne(_ context.Context, name string, filter Filter, out any) error {
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		ok, err := d.matches(filter)
		if err != nil {
			return err
		}
		if ok {
			return d.decode(out)
		}
	}
	return ErrNotFound
}

// InsertOne implements Store.
func (s *DirStore) InsertOne(_ context.Context, name string, doc any) error {
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	d, err := toDocument(doc)
	if err != nil {
		return err
	}
	return c.append(d)
}

// UpdateOne implements Store.
func (s *DirStore) UpdateOne(_ context.Context, name string, filter Filter, set Set) error {
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	return c.update(filter, set)
}

// Close implements Store.
func (s *DirStore) Close() error {
	return nil
}

func (s *DirStore) collection(name string) (*collection, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := &collection{path: filepath.Join(s.dir, name+".jsonl")}
	if err := c.load(); err != nil {
		return nil, err
	}
	s.collections[name] = c
	return c, nil
}

type collection struct {
	path string
	mu   sync.RWMutex
	docs []document
}

func (c *collection) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.docs = []document{}
			return nil
		}
		return fmt.Errorf("failed to open collection file %s: %w", c.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var docs []document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var d document
		if err := json.Unmarshal(line, &d); err != nil {
			return fmt.Errorf("failed to unmarshal document in %s: %w", c.path, err)
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read collection file %s: %w", c.path, err)
	}
	c.docs = docs
	return nil
}

func (c *collection) append(d document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: data file
	if err != nil {
		return fmt.Errorf("failed to open collection file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	c.docs = append(c.docs, d)
	return nil
}

func (c *collection) update(filter Filter, set Set) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, d := range c.docs {
		ok, err := d.matches(filter)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		updated := maps.Clone(d)
		if err := updated.apply(set); err != nil {
			return err
		}
		docs := make([]document, len(c.docs))
		copy(docs, c.docs)
		docs[i] = updated
		if err := c.writeAll(docs); err != nil {
			return err
		}
		c.docs = docs
		return nil
	}
	return ErrNotFound
}

// writeAll rewrites the collection file. The caller must hold c.mu.
func (c *collection) writeAll(docs []document) error {
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // G304: path derived from collection name
	if err != nil {
		return fmt.Errorf("failed to create collection file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write document: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close collection file: %w", err)
	}
	return os.Rename(tmp, c.path)
}
