// Package memory implements an in-memory mount.ConfigStore.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
)

// Store keeps one table per scope in memory. Tables are copied on the way in
// and out, so callers never share state with the store.
//
// Thread safety:
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]mount.RawMountTable
	closed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{tables: make(map[string]mount.RawMountTable)}
}

func (s *Store) ReadRaw(ctx context.Context, scope mount.Scope) (mount.RawMountTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed
	}

	table, ok := s.tables[scope.String()]
	if !ok {
		return mount.RawMountTable{}, nil
	}
	return table.Clone(), nil
}

func (s *Store) WriteRaw(ctx context.Context, scope mount.Scope, table mount.RawMountTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	if table == nil {
		table = mount.RawMountTable{}
	}
	s.tables[scope.String()] = table.Clone()
	return nil
}

// Close drops every table.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.tables = nil
	return nil
}
