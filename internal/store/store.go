package store

import (
	"fmt"

	"github.com/emberkv/emberkv/internal/hash"
)

// DefaultShardCount is the number of shards a Store opens with unless
// overridden.
const DefaultShardCount = 64

// MinShardArenaBytes is the smallest arena a single shard will ever
// be given, regardless of how thin the configured pool is sliced. It
// must cover the slab allocator's pre-warm (every size class 2^6..2^12
// carved 4 pages deep at 64 KiB/page, about 1.75 MiB) with room left
// for keys and index growth, so the floor sits above a nominal
// "at least 1 MiB" to stay satisfiable in practice.
const MinShardArenaBytes = 2 << 20

// Config controls how Open sizes a Store.
type Config struct {
	// ShardCount must be a power of two. Zero selects DefaultShardCount.
	ShardCount int
	// PoolBytes is the total arena budget across every shard. Zero
	// selects ShardCount * MinShardArenaBytes.
	PoolBytes int
	// Now supplies the current time as Unix seconds. Nil selects the
	// real wall clock (time.Now().Unix).
	Now func() int64
}

// Store is a fixed, power-of-two array of Shards, dispatching keys to
// a shard by the low bits of their FNV-1a hash.
type Store struct {
	shards []*Shard
	now    func() int64
}

// Open creates a Store per cfg. Each shard gets max(PoolBytes/ShardCount,
// MinShardArenaBytes) bytes of arena.
func Open(cfg Config) (*Store, error) {
	shardCount := cfg.ShardCount
	if shardCount == 0 {
		shardCount = DefaultShardCount
	}
	if !hash.IsPowerOfTwo(shardCount) {
		return nil, fmt.Errorf("store: shard count %d is not a power of two", shardCount)
	}
	now := cfg.Now
	if now == nil {
		now = defaultNow
	}

	perShard := cfg.PoolBytes / shardCount
	if perShard < MinShardArenaBytes {
		perShard = MinShardArenaBytes
	}

	s := &Store{shards: make([]*Shard, shardCount), now: now}
	for i := range s.shards {
		sh, err := NewShard(perShard, now)
		if err != nil {
			s.closeOpened(i)
			return nil, err
		}
		s.shards[i] = sh
	}
	return s, nil
}

func (s *Store) closeOpened(n int) {
	for i := 0; i < n; i++ {
		_ = s.shards[i].Close()
	}
}

// Close releases every shard's backing memory.
func (s *Store) Close() error {
	var firstErr error
	for _, sh := range s.shards {
		if err := sh.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ShardCount returns the number of shards the Store was opened with.
func (s *Store) ShardCount() int { return len(s.shards) }

func (s *Store) shardFor(key []byte) (sh *Shard, h uint64) {
	h = hash.FNV1a64(key)
	return s.shards[hash.ShardIndex(h, len(s.shards))], h
}

// Set stores key/value with the given flags and absolute expiration
// (0 means never).
func (s *Store) Set(key, value []byte, flags uint32, expireAt int64) error {
	sh, h := s.shardFor(key)
	return sh.Set(h, key, value, flags, expireAt)
}

// SetUnlocked is Set without per-shard locking, for callers that
// already guarantee exclusive access (such as the embedding facade's
// single-goroutine use).
func (s *Store) SetUnlocked(key, value []byte, flags uint32, expireAt int64) error {
	sh, h := s.shardFor(key)
	return sh.SetUnlocked(h, key, value, flags, expireAt)
}

// Get looks up key. The returned slice aliases shard-owned memory and
// is valid only until the next mutation of that shard.
func (s *Store) Get(key []byte) (value []byte, flags uint32, found bool) {
	sh, h := s.shardFor(key)
	return sh.Get(h, key)
}

// GetUnlocked is Get without locking.
func (s *Store) GetUnlocked(key []byte) (value []byte, flags uint32, found bool) {
	sh, h := s.shardFor(key)
	return sh.GetUnlocked(h, key)
}

// GetInto copies key's value into dst.
func (s *Store) GetInto(key []byte, dst []byte) (n, required int, status GetIntoStatus) {
	sh, h := s.shardFor(key)
	return sh.GetInto(h, key, dst)
}

// GetIntoUnlocked is GetInto without locking.
func (s *Store) GetIntoUnlocked(key []byte, dst []byte) (n, required int, status GetIntoStatus) {
	sh, h := s.shardFor(key)
	return sh.GetIntoUnlocked(h, key, dst)
}

// Delete removes key, reporting whether it was present.
func (s *Store) Delete(key []byte) bool {
	sh, h := s.shardFor(key)
	return sh.Delete(h, key)
}

// DeleteUnlocked is Delete without locking.
func (s *Store) DeleteUnlocked(key []byte) bool {
	sh, h := s.shardFor(key)
	return sh.DeleteUnlocked(h, key)
}

// Flush clears every shard. It is not a global atomic snapshot: each
// shard flushes independently and in sequence.
func (s *Store) Flush() {
	for _, sh := range s.shards {
		sh.Flush()
	}
}

// FlushUnlocked is Flush without locking.
func (s *Store) FlushUnlocked() {
	for _, sh := range s.shards {
		sh.FlushUnlocked()
	}
}

// Stats aggregates every shard's counters sequentially.
func (s *Store) Stats() Stats {
	var total Stats
	for _, sh := range s.shards {
		st := sh.Stats()
		total.CurrItems += st.CurrItems
		total.Bytes += st.Bytes
		total.GetHits += st.GetHits
		total.GetMisses += st.GetMisses
	}
	return total
}

// StatsUnlocked is Stats without locking.
func (s *Store) StatsUnlocked() Stats {
	var total Stats
	for _, sh := range s.shards {
		st := sh.StatsUnlocked()
		total.CurrItems += st.CurrItems
		total.Bytes += st.Bytes
		total.GetHits += st.GetHits
		total.GetMisses += st.GetMisses
	}
	return total
}
