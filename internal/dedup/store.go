package dedup

import (
	"hash/fnv"
	"sync"
	"time"
)

// Store remembers which dedup keys have already produced an alert.
// CheckAndSet must be atomic: no two concurrent calls with the same key may
// both report the key as fresh.
type Store interface {
	// CheckAndSet records the key if it is not already present and reports
	// whether the key was fresh. A fresh key means the listing may alert.
	CheckAndSet(key string) (bool, error)
	// Purge drops expired keys and returns how many were removed.
	Purge() (int, error)
	Close() error
}

// shardCount is a power of two so shard selection is a cheap mask.
const shardCount = 16

type shard struct {
	mu   sync.Mutex
	keys map[string]time.Time // zero time = never expires
}

// MemoryStore is a sharded in-memory Store. Keys expire after the configured
// TTL; a TTL of zero keeps keys for the process lifetime, matching the
// observed monitor's global set, but Purge plus a TTL bounds memory for
// long-running processes.
type MemoryStore struct {
	shards [shardCount]*shard
	ttl    time.Duration

	now func() time.Time // stubbed in tests
}

// NewMemoryStore creates a MemoryStore with the given key TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{ttl: ttl, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{keys: make(map[string]time.Time)}
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()&(shardCount-1)]
}

// CheckAndSet implements Store. The check and the insert happen under one
// shard lock, so concurrent evaluations of the same listing cannot both win.
func (s *MemoryStore) CheckAndSet(key string) (bool, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	expiry, exists := sh.keys[key]
	if exists && (expiry.IsZero() || now.Before(expiry)) {
		return false, nil
	}

	if s.ttl > 0 {
		sh.keys[key] = now.Add(s.ttl)
	} else {
		sh.keys[key] = time.Time{}
	}
	return true, nil
}

// Purge removes expired keys across all shards.
func (s *MemoryStore) Purge() (int, error) {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, expiry := range sh.keys {
			if !expiry.IsZero() && !now.Before(expiry) {
				delete(sh.keys, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored keys, expired or not.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.keys)
		sh.mu.Unlock()
	}
	return n
}

// Close implements Store; a MemoryStore holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}
