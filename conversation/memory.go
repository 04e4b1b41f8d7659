package conversation

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory conversation store backed by a map. Records are
// deep-copied on save and load to prevent external mutation. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Save persists a record by deep-copying it into the store.
func (m *MemoryStore) Save(_ context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.ConversationID == "" {
		return fmt.Errorf("conversation id is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ConversationID] = record.Clone()
	return nil
}

// Load retrieves a record by identifier. Returns a deep copy so callers
// cannot mutate store state.
func (m *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// Delete removes a record by identifier.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.records, id)
	return nil
}

// List returns all records in the store as deep copies.
func (m *MemoryStore) List(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		result = append(result, rec.Clone())
	}
	return result, nil
}
