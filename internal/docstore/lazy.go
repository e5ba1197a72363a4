package docstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var errClosed = errors.New("document store closed")

// Opener establishes a connection to a Store.
type Opener func(ctx context.Context) (Store, error)

// Lazy is a Store that connects on first use and then reuses the connection
// for the life of the process.
//
// A failed connection is remembered: every later call returns the same error
// and the opener is never retried.
type Lazy struct {
	open Opener

	once  sync.Once
	store Store
	err   error
}

// NewLazy returns a Lazy store using open.
func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

// Acquire returns the shared connection, establishing it on the first call.
func (l *Lazy) Acquire(ctx context.Context) (Store, error) {
	l.once.Do(func() {
		// The first caller may be a request whose context ends soon.
		l.store, l.err = l.open(context.WithoutCancel(ctx))
		if l.err != nil {
			slog.ErrorContext(ctx, "Failed to open document store", "err", l.err)
		}
	})
	return l.store, l.err
}

// FindOne implements Store.
func (l *Lazy) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	s, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	return s.FindOne(ctx, collection, filter, out)
}

// InsertOne implements Store.
func (l *Lazy) InsertOne(ctx context.Context, collection string, doc any) error {
	s, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	return s.InsertOne(ctx, collection, doc)
}

// UpdateOne implements Store.
func (l *Lazy) UpdateOne(ctx context.Context, collection string, filter Filter, set Set) error {
	s, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	return s.UpdateOne(ctx, collection, filter, set)
}

// Close closes the connection if one was established. If none was, later
// calls fail instead of connecting.
func (l *Lazy) Close() error {
	l.once.Do(func() {
		l.err = errClosed
	})
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}
