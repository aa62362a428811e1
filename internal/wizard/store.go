package wizard

import (
	"context"
	"sync"
)

// Store holds at most one session per user. The engine is its only writer.
type Store interface {
	// Get returns ErrSessionNotFound when the user has no session.
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Remove(ctx context.Context, userID int64) error
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. Sessions are stored in their
// encoded form so a handler mutating the state it was given cannot change the
// stored copy unless the engine puts it back.
type MemoryStore struct {
	mu    sync.RWMutex
	codec StateCodec
	data  map[int64][]byte
}

func NewMemoryStore(codec StateCodec) *MemoryStore {
	return &MemoryStore{codec: codec, data: make(map[int64][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	raw, ok := m.data[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return DecodeSession(raw, m.codec)
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	raw, err := EncodeSession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[s.UserID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.data, userID)
	m.mu.Unlock()
	return nil
}

// Len reports the number of open sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
