package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testDoc struct {
	Type  string            `json:"type" bson:"type"`
	Name  string            `json:"name" bson:"name"`
	Count int               `json:"count" bson:"count"`
	Tags  map[string]string `json:"tags,omitempty" bson:"tags,omitempty"`
}

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := t.Context()

	t.Run("missing", func(t *testing.T) {
		var got testDoc
		if err := s.FindOne(ctx, "things", Filter{"type": "main"}, &got); !errors.Is(err, ErrNotFound) {
			t.Fatalf("FindOne on empty collection = %v, want ErrNotFound", err)
		}
		if err := s.UpdateOne(ctx, "things", Filter{"type": "main"}, Set{"name": "x"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdateOne on empty collection = %v, want ErrNotFound", err)
		}
	})

	t.Run("insert_find_update", func(t *testing.T) {
		docs := []testDoc{
			{Type: "other", Name: "first", Count: 1},
			{Type: "main", Name: "ناو", Count: 2},
			{Type: "main", Name: "second main", Count: 3},
		}
		for _, d := range docs {
			if err := s.InsertOne(ctx, "things", d); err != nil {
				t.Fatalf("InsertOne: %v", err)
			}
		}

		var got testDoc
		if err := s.FindOne(ctx, "things", Filter{"type": "main"}, &got); err != nil {
			t.Fatalf("FindOne: %v", err)
		}
		if diff := cmp.Diff(docs[1], got); diff != "" {
			t.Errorf("FindOne first match (-want +got):\n%s", diff)
		}

		if err := s.FindOne(ctx, "things", Filter{"count": 3}, &got); err != nil {
			t.Fatalf("FindOne by count: %v", err)
		}
		if got.Name != "second main" {
			t.Errorf("Name = %q, want %q", got.Name, "second main")
		}

		set := Set{"name": "renamed", "tags": map[string]string{"k": "v"}}
		if err := s.UpdateOne(ctx, "things", Filter{"type": "main"}, set); err != nil {
			t.Fatalf("UpdateOne: %v", err)
		}
		got = testDoc{}
		if err := s.FindOne(ctx, "things", Filter{"type": "main"}, &got); err != nil {
			t.Fatalf("FindOne after update: %v", err)
		}
		want := testDoc{Type: "main", Name: "renamed", Count: 2, Tags: map[string]string{"k": "v"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("after update (-want +got):\n%s", diff)
		}

		// Collections are independent.
		if err := s.FindOne(ctx, "others", Filter{"type": "main"}, &got); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindOne other collection = %v, want ErrNotFound", err)
		}
	})
}

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	exerciseStore(t, s)

	// A fresh store reads back what the first one wrote.
	s2, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	var got testDoc
	if err := s2.FindOne(t.Context(), "things", Filter{"type": "main"}, &got); err != nil {
		t.Fatalf("FindOne after reopen: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("Name after reopen = %q, want %q", got.Name, "renamed")
	}
	if _, err := os.Stat(filepath.Join(dir, "things.jsonl")); err != nil {
		t.Errorf("collection file: %v", err)
	}
}

func TestDirStore_InvalidCollection(t *testing.T) {
	s, err := OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if err := s.InsertOne(t.Context(), name, testDoc{}); err == nil {
			t.Errorf("InsertOne(%q) succeeded, want error", name)
		}
	}
}

func TestSQLStore_SQLite(t *testing.T) {
	s, err := Open(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "docs.db"), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()
	exerciseStore(t, s)
}

func TestSQLStore_Postgres(t *testing.T) {
	dsn := os.Getenv("TABLEDESK_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TABLEDESK_TEST_POSTGRES_URL not set")
	}
	s, err := Open(t.Context(), dsn, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TABLEDESK_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TABLEDESK_TEST_MONGO_URL not set")
	}
	s, err := Open(t.Context(), uri, Options{Database: "tabledesk_test_" + filepath.Base(t.TempDir())})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "", wantErr: true},
		{url: "redis://localhost", wantErr: true},
		{url: "file://" + t.TempDir()},
		{url: t.TempDir()},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			s, err := Open(t.Context(), tt.url, Options{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if s != nil {
				_ = s.Close()
			}
		})
	}
}

func TestLazy(t *testing.T) {
	t.Run("opens_once", func(t *testing.T) {
		dir := t.TempDir()
		var calls atomic.Int32
		l := NewLazy(func(context.Context) (Store, error) {
			calls.Add(1)
			return OpenDir(dir)
		})
		ctx := t.Context()
		for range 3 {
			if err := l.InsertOne(ctx, "things", testDoc{Type: "main"}); err != nil {
				t.Fatalf("InsertOne: %v", err)
			}
		}
		var got testDoc
		if err := l.FindOne(ctx, "things", Filter{"type": "main"}, &got); err != nil {
			t.Fatalf("FindOne: %v", err)
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("opener called %d times, want 1", n)
		}
		if err := l.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	t.Run("failure_is_sticky", func(t *testing.T) {
		boom := errors.New("connection refused")
		var calls atomic.Int32
		l := NewLazy(func(context.Context) (Store, error) {
			calls.Add(1)
			return nil, boom
		})
		ctx := t.Context()
		for range 3 {
			var got testDoc
			if err := l.FindOne(ctx, "things", Filter{}, &got); !errors.Is(err, boom) {
				t.Fatalf("FindOne = %v, want %v", err, boom)
			}
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("opener called %d times, want 1", n)
		}
	})

	t.Run("closed_before_use", func(t *testing.T) {
		l := NewLazy(func(context.Context) (Store, error) {
			t.Fatal("opener called after Close")
			return nil, nil
		})
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := l.InsertOne(t.Context(), "things", testDoc{}); err == nil {
			t.Error("InsertOne after Close succeeded")
		}
	})
}
