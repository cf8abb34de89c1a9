// Package checkpoint persists the results of completed workflow steps so an
// interrupted run can resume without redoing them.
package checkpoint

import (
	"context"
	"sync"
)

// Store keeps step payloads keyed by run and step name.
type Store interface {
	Load(ctx context.Context, runID, step string) ([]byte, bool, error)
	Save(ctx context.Context, runID, step string, payload []byte) error
	// Clear drops every checkpoint of runID.
	Clear(ctx context.Context, runID string) error
}

// MemoryStore is a process-local Store, used when no Redis is configured.
// Checkpoints do not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, runID, step string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.runs[runID][step]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true, nil
}

func (m *MemoryStore) Save(_ context.Context, runID, step string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps, ok := m.runs[runID]
	if !ok {
		steps = make(map[string][]byte)
		m.runs[runID] = steps
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	steps[step] = stored
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}
