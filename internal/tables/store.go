// Read-modify-write operations over the aggregate document.

package tables

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tabledesk/tabledesk/internal/docstore"
)

var (
	// ErrAggregateNotFound is returned by writes before the aggregate was
	// seeded by a first read.
	ErrAggregateNotFound = errors.New("aggregate not found")
	// ErrTableNotFound is returned when no table has the requested name.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableExists is returned when creating a table whose name is taken.
	ErrTableExists = errors.New("table already exists")
	// ErrRowIndex is returned when a row position is out of range.
	ErrRowIndex = errors.New("row index out of range")
)

// Store runs every operation as one load, mutate, write cycle over the single
// aggregate document.
//
// Nothing is locked and no version is checked: two concurrent writers both
// load the same snapshot and the last one to write wins.
type Store struct {
	db   docstore.Store
	seed func() Aggregate
}

// NewStore returns a Store persisting to db.
func NewStore(db docstore.Store) *Store {
	return &Store{db: db, seed: Seed}
}

var mainFilter = docstore.Filter{"type": AggregateType}

// GetAggregate returns the aggregate, inserting the seed content if none
// exists yet.
func (s *Store) GetAggregate(ctx context.Context) (*Aggregate, error) {
	a, err := s.load(ctx)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrAggregateNotFound) {
		return nil, err
	}
	seed := s.seed()
	seed.Type = AggregateType
	seed.normalize()
	if err := s.db.InsertOne(ctx, Collection, &seed); err != nil {
		return nil, fmt.Errorf("failed to seed aggregate: %w", err)
	}
	return &seed, nil
}

// ReplaceTableData replaces every row of the named table.
func (s *Store) ReplaceTableData(ctx context.Context, tableName string, rows []Row) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		t, err := a.Table(tableName)
		if err != nil {
			return err
		}
		t.Data = cloneRows(rows)
		return nil
	})
}

// AppendTable adds t after the existing tables. The aggregate must exist.
func (s *Store) AppendTable(ctx context.Context, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t = t.Clone()
	t.normalize()
	return s.mutateTables(ctx, func(a *Aggregate) error {
		if a.Index(t.Name) >= 0 {
			return fmt.Errorf("%w: %q", ErrTableExists, t.Name)
		}
		a.Tables = append(a.Tables, t)
		return nil
	})
}

// RemoveTable removes every table called tableName.
func (s *Store) RemoveTable(ctx context.Context, tableName string) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		n := len(a.Tables)
		a.Tables = slices.DeleteFunc(a.Tables, func(t Table) bool { return t.Name == tableName })
		if len(a.Tables) == n {
			return fmt.Errorf("%w: %q", ErrTableNotFound, tableName)
		}
		return nil
	})
}

// MoveRow removes the first row of source equal to row and appends row to
// target.
//
// When source holds no equal row the removal is skipped but the append still
// happens, so the row ends up duplicated system-wide.
func (s *Store) MoveRow(ctx context.Context, source, target string, row Row) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		src, err := a.Table(source)
		if err != nil {
			return err
		}
		if _, err := a.Table(target); err != nil {
			return err
		}
		if i := slices.Index(src.Data, row); i >= 0 {
			src.Data = slices.Delete(src.Data, i, i+1)
		}
		dst, _ := a.Table(target)
		dst.Data = append(dst.Data, row)
		return nil
	})
}

// MoveRowAt moves the row at from so it ends up at position to.Index of
// to.Table. Moving within one table reorders it. to.Index may equal the
// target's length after removal, which appends.
func (s *Store) MoveRowAt(ctx context.Context, from, to RowRef) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		src, err := a.Table(from.Table)
		if err != nil {
			return err
		}
		if _, err := a.Table(to.Table); err != nil {
			return err
		}
		if from.Index < 0 || from.Index >= len(src.Data) {
			return fmt.Errorf("%w: %s", ErrRowIndex, from)
		}
		row := src.Data[from.Index]
		src.Data = slices.Delete(src.Data, from.Index, from.Index+1)
		dst, _ := a.Table(to.Table)
		if to.Index < 0 || to.Index > len(dst.Data) {
			return fmt.Errorf("%w: %s", ErrRowIndex, to)
		}
		dst.Data = slices.Insert(dst.Data, to.Index, row)
		return nil
	})
}

// BatchDeleteRows deletes the rows at the given positions. Duplicates are
// ignored. Nothing is written if any position is out of range.
func (s *Store) BatchDeleteRows(ctx context.Context, tableName string, indices []int) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		t, err := a.Table(tableName)
		if err != nil {
			return err
		}
		desc, err := descending(indices, len(t.Data), tableName)
		if err != nil {
			return err
		}
		for _, i := range desc {
			t.Data = slices.Delete(t.Data, i, i+1)
		}
		return nil
	})
}

// BatchMoveRows moves the rows at the given positions of source to the end of
// target, keeping their relative order.
func (s *Store) BatchMoveRows(ctx context.Context, source, target string, indices []int) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		src, err := a.Table(source)
		if err != nil {
			return err
		}
		if _, err := a.Table(target); err != nil {
			return err
		}
		desc, err := descending(indices, len(src.Data), source)
		if err != nil {
			return err
		}
		moved := make([]Row, len(desc))
		for j, i := range desc {
			moved[len(desc)-1-j] = src.Data[i]
		}
		for _, i := range desc {
			src.Data = slices.Delete(src.Data, i, i+1)
		}
		dst, _ := a.Table(target)
		dst.Data = append(dst.Data, moved...)
		return nil
	})
}

// AddRow appends row to the named table.
func (s *Store) AddRow(ctx context.Context, tableName string, row Row) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		t, err := a.Table(tableName)
		if err != nil {
			return err
		}
		t.Data = append(t.Data, row)
		return nil
	})
}

// UpdateRow overwrites the row at ref.
func (s *Store) UpdateRow(ctx context.Context, ref RowRef, row Row) error {
	return s.mutateTables(ctx, func(a *Aggregate) error {
		t, err := a.Table(ref.Table)
		if err != nil {
			return err
		}
		if ref.Index < 0 || ref.Index >= len(t.Data) {
			return fmt.Errorf("%w: %s", ErrRowIndex, ref)
		}
		t.Data[ref.Index] = row
		return nil
	})
}

// DeleteRow removes the row at ref.
func (s *Store) DeleteRow(ctx context.Context, ref RowRef) error {
	return s.BatchDeleteRows(ctx, ref.Table, []int{ref.Index})
}

// ImportRows merges rows into the named table according to mode.
func (s *Store) ImportRows(ctx context.Context, tableName string, rows []Row, mode Mode) error {
	if mode != ModeAppend && mode != ModeReplace {
		return fmt.Errorf("unknown import mode %q", mode)
	}
	return s.mutateTables(ctx, func(a *Aggregate) error {
		t, err := a.Table(tableName)
		if err != nil {
			return err
		}
		if mode == ModeReplace {
			t.Data = cloneRows(rows)
		} else {
			t.Data = append(t.Data, rows...)
		}
		return nil
	})
}

// MergeMetadata shallow-merges partial into the metadata, overwriting keys
// present in both.
func (s *Store) MergeMetadata(ctx context.Context, partial map[string]string) error {
	a, err := s.load(ctx)
	if err != nil {
		return err
	}
	maps.Copy(a.Metadata, partial)
	return s.update(ctx, docstore.Set{"metadata": a.Metadata})
}

func (s *Store) load(ctx context.Context) (*Aggregate, error) {
	var a Aggregate
	if err := s.db.FindOne(ctx, Collection, mainFilter, &a); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAggregateNotFound
		}
		return nil, fmt.Errorf("failed to load aggregate: %w", err)
	}
	a.normalize()
	return &a, nil
}

func (s *Store) mutateTables(ctx context.Context, fn func(a *Aggregate) error) error {
	a, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(a); err != nil {
		return err
	}
	return s.update(ctx, docstore.Set{"tables": a.Tables})
}

func (s *Store) update(ctx context.Context, set docstore.Set) error {
	if err := s.db.UpdateOne(ctx, Collection, mainFilter, set); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrAggregateNotFound
		}
		return fmt.Errorf("failed to save aggregate: %w", err)
	}
	return nil
}

// descending validates positions against n and returns them de-duplicated,
// largest first, so deleting in order never shifts a pending position.
func descending(indices []int, n int, tableName string) ([]int, error) {
	out := slices.Clone(indices)
	for _, i := range out {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: %s", ErrRowIndex, RowRef{Table: tableName, Index: i})
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out, nil
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return []Row{}
	}
	return slices.Clone(rows)
}
