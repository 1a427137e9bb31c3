package session

import (
	"sync"

	"geoagent/internal/agent"
)

// MemoryStore is the default in-process store. Conversations do not
// survive a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*agent.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*agent.Conversation),
	}
}

func (s *MemoryStore) Get(id string) (*agent.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return conv, nil
}

func (s *MemoryStore) Put(id string, conv *agent.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[id] = conv
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conversations), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
