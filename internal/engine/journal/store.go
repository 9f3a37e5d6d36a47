package journal

import (
	"context"
	"sort"
	"sync"
)

// Store persists snapshots in insertion order.
type Store interface {
	// Append stores s and returns the id assigned to it. Ids increase
	// monotonically.
	Append(ctx context.Context, s Snapshot) (int64, error)

	// List returns all snapshots ordered by id.
	List(ctx context.Context) ([]Snapshot, error)

	// Delete removes the snapshots with the given ids. Unknown ids are
	// ignored.
	Delete(ctx context.Context, ids ...int64) error

	// Clear removes every snapshot.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu        sync.Mutex
	nextID    int64
	snapshots []Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, s Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s = s.Clone()
	s.ID = m.nextID
	m.nextID++
	m.snapshots = append(m.snapshots, s)
	return s.ID, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, len(m.snapshots))
	for i, s := range m.snapshots {
		out[i] = s.Clone()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := m.snapshots[:0]
	for _, s := range m.snapshots {
		if _, ok := drop[s.ID]; !ok {
			kept = append(kept, s)
		}
	}
	m.snapshots = kept
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = nil
	return nil
}
