package storage

import (
	"sort"
	"sync"

	"github.com/CrestNiraj12/tapestry/app"
)

// MemoryStore is a Store that lives for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	feeds  map[string]map[string]string
	closed bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{feeds: make(map[string]map[string]string)}
}

func (s *MemoryStore) Scope(feed string) app.Store {
	return &memoryScope{parent: s, feed: feed}
}

func (s *MemoryStore) Keys(feed string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.feeds[feed]))
	for k := range s.feeds[feed] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.feeds = nil
	s.mu.Unlock()
	return nil
}

type memoryScope struct {
	parent *MemoryStore
	feed   string
}

func (m *memoryScope) SetItem(key string, value *string) error {
	s := m.parent
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if value == nil {
		delete(s.feeds[m.feed], key)
		return nil
	}
	if s.feeds[m.feed] == nil {
		s.feeds[m.feed] = make(map[string]string)
	}
	s.feeds[m.feed][key] = *value
	return nil
}

func (m *memoryScope) GetItem(key string) (string, bool, error) {
	s := m.parent
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.feeds[m.feed][key]
	return v, ok, nil
}

func (m *memoryScope) ClearItems() error {
	s := m.parent
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.feeds, m.feed)
	return nil
}
