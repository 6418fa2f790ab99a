package sync

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 32

// ShardedMutex spreads locks across a fixed set of shards keyed by a resource key,
// so unrelated keys rarely contend while equal keys always serialize.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex creates a ShardedMutex with n shards (32 when n <= 0).
func NewShardedMutex(n int) *ShardedMutex {
	if n <= 0 {
		n = defaultShards
	}
	return &ShardedMutex{shards: make([]sync.Mutex, n)}
}

// Lock acquires the shard owning key. The empty key maps to shard 0.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.Shard(key)].Lock()
}

// Unlock releases the shard owning key.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.Shard(key)].Unlock()
}

// Shard returns the shard index for key.
func (m *ShardedMutex) Shard(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards))) // #nosec G115 -- shard count is small and positive
}

// Len returns the number of shards.
func (m *ShardedMutex) Len() int {
	return len(m.shards)
}
