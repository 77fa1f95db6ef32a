// Package store provides imports.Store implementations: an in-process map
// and a PostgreSQL table per entity kind.
package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

// Memory is an in-process imports.Store with per-record versions.
// It is used by tests and by dry runs of the CLI.
type Memory[T any] struct {
	mu      sync.Mutex
	key     func(T) string
	records map[string]imports.Existing[T]
	refs    imports.RefSet

	// Check, when set, runs for every write like a table constraint.
	Check func(T) error
}

// NewMemory creates an empty store. key derives a record's natural key.
func NewMemory[T any](key func(T) string) *Memory[T] {
	return &Memory[T]{
		key:     key,
		records: make(map[string]imports.Existing[T]),
		refs:    imports.RefSet{},
	}
}

// Put stores rec directly, bumping its version.
func (m *Memory[T]) Put(rec T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(rec)
	m.records[k] = imports.Existing[T]{Record: rec, Version: m.records[k].Version + 1}
}

// Get returns the stored record for a natural key.
func (m *Memory[T]) Get(key string) (imports.Existing[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.records[key]
	return ex, ok
}

// Len returns the number of stored records.
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// AddReference registers a reference key.
func (m *Memory[T]) AddReference(group, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs.Add(group, key)
}

// References returns a copy of the reference sets.
func (m *Memory[T]) References(ctx context.Context) (imports.RefSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(imports.RefSet, len(m.refs))
	for group, keys := range m.refs {
		out[group] = maps.Clone(keys)
	}
	return out, nil
}

// Lookup returns the stored records for keys. Absent keys are omitted.
func (m *Memory[T]) Lookup(ctx context.Context, keys []string) (map[string]imports.Existing[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]imports.Existing[T], len(keys))
	for _, k := range keys {
		if ex, ok := m.records[k]; ok {
			out[k] = ex
		}
	}
	return out, nil
}

// Apply writes a batch. Changes are staged on a copy and swapped in at the
// end, so an error leaves the store untouched.
func (m *Memory[T]) Apply(ctx context.Context, b imports.Batch[T]) (imports.ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range b.Guards {
		if m.records[g.Key].Version != g.Version {
			return imports.ApplyResult{}, fmt.Errorf("%s %q: %w", b.Target, g.Key, imports.ErrStalePreview)
		}
	}

	next := maps.Clone(m.records)
	var res imports.ApplyResult
	for _, op := range b.Ops {
		if err := ctx.Err(); err != nil {
			return imports.ApplyResult{}, fmt.Errorf("apply %s: %w", b.Target, err)
		}
		if err := m.write(next, op); err != nil {
			if b.Policy != imports.CommitPartial {
				return imports.ApplyResult{}, fmt.Errorf("row %d: %w", op.RowNumber, err)
			}
			res.Failures = append(res.Failures, imports.RowFailure{
				RowNumber:  op.RowNumber,
				NaturalKey: op.Key,
				Reason:     err.Error(),
			})
			continue
		}
		if op.Action == imports.ActionInsert {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	m.records = next
	return res, nil
}

func (m *Memory[T]) write(next map[string]imports.Existing[T], op imports.WriteOp[T]) error {
	cur, exists := next[op.Key]
	switch op.Action {
	case imports.ActionInsert:
		if exists {
			return fmt.Errorf("duplicate key %q", op.Key)
		}
	case imports.ActionUpdate:
		if !exists || cur.Version != op.Version {
			return fmt.Errorf("update %q: %w", op.Key, imports.ErrStalePreview)
		}
	default:
		return fmt.Errorf("unexpected action %s", op.Action)
	}
	if m.Check != nil {
		if err := m.Check(op.Record); err != nil {
			return err
		}
	}
	next[op.Key] = imports.Existing[T]{Record: op.Record, Version: cur.Version + 1}
	return nil
}
