package respcache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the single-process backend: TTL on read, LRU beyond
// capacity. Eviction order is recency of use, independent of TTL.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	now func() time.Time // injectable clock for tests
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	entry := elem.Value.(*memoryEntry)
	if s.now().After(entry.expiresAt) {
		s.order.Remove(elem)
		delete(s.entries, key)
		return nil, false, nil
	}

	// Recency bump only; TTL is never extended by a read
	s.order.MoveToFront(elem)

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)

	if elem, ok := s.entries[key]; ok {
		// Overwrite wholesale
		elem.Value = &memoryEntry{key: key, value: stored, expiresAt: s.now().Add(ttl)}
		s.order.MoveToFront(elem)
		return nil
	}

	elem := s.order.PushFront(&memoryEntry{key: key, value: stored, expiresAt: s.now().Add(ttl)})
	s.entries[key] = elem

	for len(s.entries) > s.capacity {
		tail := s.order.Back()
		if tail == nil {
			break
		}
		evicted := tail.Value.(*memoryEntry)
		s.order.Remove(tail)
		delete(s.entries, evicted.key)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.order.Remove(elem)
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, elem := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.order.Remove(elem)
			delete(s.entries, key)
		}
	}
	return nil
}

// Len reports live entries, expired ones included until their next read
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ Store = &MemoryStore{}
