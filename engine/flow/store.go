package flow

import "sync"

// Store is the keyed table of operator id to flow state.
type Store interface {
	Get(operatorID int64) (*State, bool)
	Put(operatorID int64, state *State)
	Clear(operatorID int64)
}

// MemoryStore keeps flow states in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]*State)}
}

func (m *MemoryStore) Get(operatorID int64) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[operatorID]
	return s, ok
}

// Put replaces any prior state of the operator.
func (m *MemoryStore) Put(operatorID int64, state *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[operatorID] = state
}

func (m *MemoryStore) Clear(operatorID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, operatorID)
}

// Len returns the number of operators with an active flow.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
