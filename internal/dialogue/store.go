package dialogue

import "sync"

// Store holds the current State of each conversation. A conversation that
// was never written reads as Idle. Replace is last-writer-wins.
type Store interface {
	Get(conversationID int64) State
	Replace(conversationID int64, s State)
}

// MemoryStore is a process-local Store. Entries never expire.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (m *MemoryStore) Get(conversationID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.states[conversationID]; ok {
		return s
	}
	return Idle{}
}

// Replace stores s. A nil state resets the conversation to Idle.
func (m *MemoryStore) Replace(conversationID int64, s State) {
	if s == nil {
		s = Idle{}
	}
	m.mu.Lock()
	m.states[conversationID] = s
	m.mu.Unlock()
}

// Len returns the number of conversations with a stored state.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
