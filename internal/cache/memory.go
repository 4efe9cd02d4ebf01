package cache

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

const shardCount = 32

// entry is one cached payload. Entries are immutable after creation; Set
// replaces the whole entry rather than mutating it in place.
type entry struct {
	payload   []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// shard is one slice of the key space with its own lock, so concurrent
// operations on unrelated keys do not contend on a single store-wide mutex.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// MemoryStore is an in-process cache store. Expiry is enforced at read time;
// a background janitor additionally sweeps expired entries so idle keys do
// not pin memory.
type MemoryStore struct {
	shards [shardCount]*shard

	cleanupInterval time.Duration
	done            chan struct{}
	closeOnce       sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store and starts its janitor goroutine.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		cleanupInterval: cleanupInterval,
		done:            make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	go m.janitor()
	return m
}

func (m *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

// Get returns the payload for key if present and un-expired.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s := m.shardFor(key)

	s.mu.RLock()
	e, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; a Set may have replaced the entry.
		if cur, ok := s.entries[key]; ok && cur == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Set stores payload under key, replacing any existing entry.
func (m *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s := m.shardFor(key)
	s.mu.Lock()
	s.entries[key] = &entry{payload: payload, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes the given keys.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s := m.shardFor(key)
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
	}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	dropped := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for key := range s.entries {
			if strings.HasPrefix(key, prefix) {
				delete(s.entries, key)
				dropped++
			}
		}
		s.mu.Unlock()
	}
	return dropped, nil
}

// Ping always succeeds for the in-process store.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close stops the janitor goroutine.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

// Len reports the number of live entries, counting expired but unswept
// entries as absent. Used by tests and the health endpoint.
func (m *MemoryStore) Len() int {
	now := time.Now()
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			if !e.expired(now) {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return n
}

func (m *MemoryStore) janitor() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryStore) sweep() {
	now := time.Now()
	for _, s := range m.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if e.expired(now) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}
