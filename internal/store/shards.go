package store

import (
	"hash/fnv"
	"sync"
)

// shardCount trades memory for contention: 32 shards keeps lock
// contention negligible for the per-user access pattern.
const shardCount = 32

type shard[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// Shards is a sharded concurrent map keyed by user identity. Sharding
// by user key avoids a single global lock on every event path.
type Shards[V any] struct {
	shards [shardCount]shard[V]
}

// NewShards creates an empty sharded map.
func NewShards[V any]() *Shards[V] {
	s := &Shards[V]{}
	for i := range s.shards {
		s.shards[i].m = make(map[string]V)
	}
	return s
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}

// Get returns the value for key and whether it was present.
func (s *Shards[V]) Get(key string) (V, bool) {
	sh := &s.shards[shardIndex(key)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.m[key]
	return v, ok
}

// Put stores the value under key.
func (s *Shards[V]) Put(key string, v V) {
	sh := &s.shards[shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.m[key] = v
}

// Delete removes key.
func (s *Shards[V]) Delete(key string) {
	sh := &s.shards[shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.m, key)
}

// GetOrCreate returns the value for key, creating it with make if
// absent. The make function runs under the shard's write lock, so it
// must not call back into the map.
func (s *Shards[V]) GetOrCreate(key string, make func() V) V {
	sh := &s.shards[shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok := sh.m[key]; ok {
		return v
	}
	v := make()
	sh.m[key] = v
	return v
}

// Mutate runs fn on the value for key under the shard's write lock,
// giving the mutation exclusion against concurrent Range readers.
// Reports whether the key was present.
func (s *Shards[V]) Mutate(key string, fn func(V)) bool {
	sh := &s.shards[shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.m[key]
	if !ok {
		return false
	}
	fn(v)
	return true
}

// Range calls fn for each entry until fn returns false. Entries added
// or removed concurrently may or may not be visited.
func (s *Shards[V]) Range(fn func(key string, v V) bool) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for k, v := range sh.m {
			if !fn(k, v) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// Len returns the total number of entries.
func (s *Shards[V]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}
