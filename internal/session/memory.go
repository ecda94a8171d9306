package session

import (
    "context"
    "sync"
    "time"
)

// MemoryStore keeps sessions in-process. The default when no Redis URL is
// configured.
type MemoryStore struct {
    mu       sync.RWMutex
    sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
    return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
    s.UpdatedAt = time.Now().UTC()
    m.mu.Lock()
    m.sessions[s.ID] = *s
    m.mu.Unlock()
    return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
    m.mu.RLock()
    s, ok := m.sessions[id]
    m.mu.RUnlock()
    if !ok {
        return nil, ErrNotFound
    }
    copied := s
    return &copied, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
    m.mu.Lock()
    delete(m.sessions, id)
    m.mu.Unlock()
    return nil
}
