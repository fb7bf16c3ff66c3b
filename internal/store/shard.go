package store

import (
	"errors"
	"sync"

	"github.com/emberkv/emberkv/internal/arena"
	"github.com/emberkv/emberkv/internal/bloom"
	"github.com/emberkv/emberkv/internal/index"
	"github.com/emberkv/emberkv/internal/slab"
)

// ErrOutOfMemory is returned by Set when the shard's arena cannot
// serve the key or value allocation.
var ErrOutOfMemory = arena.ErrOutOfMemory

// ErrKeyTooLarge is returned when a key exceeds the protocol's 250
// byte limit.
var ErrKeyTooLarge = errors.New("store: key exceeds maximum length")

const maxKeyLen = 250

// initialIndexCapacity is the starting power-of-two slot count for a
// fresh shard's hash index.
const initialIndexCapacity = 1 << 14

// bloomFalsePositiveRate is the target false-positive rate for each
// shard's negative-lookup accelerator.
const bloomFalsePositiveRate = 0.01

// GetIntoStatus reports the outcome of a GetInto call.
type GetIntoStatus int

const (
	GetIntoNotFound GetIntoStatus = iota
	GetIntoOK
	GetIntoTooSmall
)

// Stats is a point-in-time snapshot of one shard's counters.
type Stats struct {
	CurrItems uint64
	Bytes     uint64
	GetHits   uint64
	GetMisses uint64
}

// Shard bundles one arena, one slab allocator, one hash index, and
// one bloom filter behind a reader-writer lock. Every operation has
// two forms on the same receiver: the plain name (lock-guarded) and an
// Unlocked suffix (no locking, for callers that already guarantee
// exclusive access to the shard) — mirroring the reference's *_nolock
// split.
type Shard struct {
	mu sync.RWMutex

	arena *arena.Arena
	slab  *slab.Allocator
	idx   *index.Index
	bloom *bloom.Filter
	pool  entryPool
	now   func() int64

	arenaSize int
	hits      uint64
	misses    uint64
}

// NewShard creates a Shard with an arena of arenaSize bytes. now
// supplies the current time as Unix seconds; production callers pass
// time-based wall clock, tests pass a fake.
func NewShard(arenaSize int, now func() int64) (*Shard, error) {
	if arenaSize < MinShardArenaBytes {
		arenaSize = MinShardArenaBytes
	}
	a, err := arena.New(arenaSize)
	if err != nil {
		return nil, err
	}
	sl, err := slab.New(a)
	if err != nil {
		return nil, err
	}
	sh := &Shard{arena: a, slab: sl, arenaSize: arenaSize, now: now}
	sh.idx = index.New(initialIndexCapacity, poolKeySource{arena: a, pool: &sh.pool, now: now})
	sh.bloom = bloom.New(uint64(initialIndexCapacity), bloomFalsePositiveRate)
	return sh, nil
}

// Close releases the shard's backing memory. The Shard must not be
// used afterwards.
func (sh *Shard) Close() error { return sh.arena.Close() }

// Set stores key/value with the given flags and absolute expiration
// (0 means never). h is the caller-precomputed FNV-1a hash of key,
// shared with the Store's shard-routing decision so the hash is
// computed exactly once per operation.
func (sh *Shard) Set(h uint64, key, value []byte, flags uint32, expireAt int64) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.SetUnlocked(h, key, value, flags, expireAt)
}

// SetUnlocked is Set without locking, for callers that already
// guarantee exclusive access to the shard.
func (sh *Shard) SetUnlocked(h uint64, key, value []byte, flags uint32, expireAt int64) error {
	if len(key) > maxKeyLen {
		return ErrKeyTooLarge
	}

	if ref, found := sh.idx.Lookup(h, key); found {
		e := sh.pool.at(ref)
		oldOff, oldClass := e.valOff, e.valClass
		if err := sh.writeValue(e, value); err != nil {
			return err
		}
		sh.slab.Free(oldOff, oldClass)
		e.flags = flags
		e.expire = expireAt
		e.deleted = false
		sh.bloom.Add(key)
		return nil
	}

	keyCopy, keyOff, err := sh.arena.Alloc(len(key))
	if err != nil {
		return err
	}
	copy(keyCopy, key)

	e := Entry{keyOff: keyOff, keyLen: len(key), flags: flags, expire: expireAt}
	if err := sh.writeValue(&e, value); err != nil {
		return err
	}

	ref := sh.pool.add(e)
	sh.idx.Insert(h, key, ref)
	sh.bloom.Add(key)
	return nil
}

func (sh *Shard) writeValue(e *Entry, value []byte) error {
	block, off, class, err := sh.slab.Alloc(len(value))
	if err != nil {
		return err
	}
	copy(block, value)
	e.valOff, e.valLen, e.valClass = off, len(value), class
	return nil
}

// Get looks up key, returning its value bytes and flags. The returned
// slice aliases the shard's arena and is only valid until the next
// mutation of this shard; callers that need to retain it must copy.
func (sh *Shard) Get(h uint64, key []byte) (value []byte, flags uint32, found bool) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.GetUnlocked(h, key)
}

// GetUnlocked is Get without locking.
func (sh *Shard) GetUnlocked(h uint64, key []byte) (value []byte, flags uint32, found bool) {
	if !sh.bloom.MaybeHas(key) {
		sh.misses++
		return nil, 0, false
	}
	ref, ok := sh.liveLookup(h, key)
	if !ok {
		sh.misses++
		return nil, 0, false
	}
	e := sh.pool.at(ref)
	sh.hits++
	return sh.arena.At(e.valOff, e.valLen), e.flags, true
}

// GetInto copies key's value into dst, reporting whether it fit.
func (sh *Shard) GetInto(h uint64, key []byte, dst []byte) (n, required int, status GetIntoStatus) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.GetIntoUnlocked(h, key, dst)
}

// GetIntoUnlocked is GetInto without locking.
func (sh *Shard) GetIntoUnlocked(h uint64, key []byte, dst []byte) (n, required int, status GetIntoStatus) {
	if !sh.bloom.MaybeHas(key) {
		sh.misses++
		return 0, 0, GetIntoNotFound
	}
	ref, ok := sh.liveLookup(h, key)
	if !ok {
		sh.misses++
		return 0, 0, GetIntoNotFound
	}
	e := sh.pool.at(ref)
	sh.hits++
	if len(dst) < e.valLen {
		return 0, e.valLen, GetIntoTooSmall
	}
	n = copy(dst, sh.arena.At(e.valOff, e.valLen))
	return n, e.valLen, GetIntoOK
}

// liveLookup resolves key to a Ref only if it is present and neither
// deleted nor expired; the index itself does not filter on either.
func (sh *Shard) liveLookup(h uint64, key []byte) (index.Ref, bool) {
	ref, found := sh.idx.Lookup(h, key)
	if !found {
		return 0, false
	}
	e := sh.pool.at(ref)
	if e.deleted || (e.expire != 0 && sh.now() >= e.expire) {
		return 0, false
	}
	return ref, true
}

// Delete removes key, returning whether it was present.
func (sh *Shard) Delete(h uint64, key []byte) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.DeleteUnlocked(h, key)
}

// DeleteUnlocked is Delete without locking.
func (sh *Shard) DeleteUnlocked(h uint64, key []byte) bool {
	if !sh.bloom.MaybeHas(key) {
		return false
	}
	ref, found := sh.idx.Delete(h, key)
	if !found {
		return false
	}
	e := sh.pool.at(ref)
	if e.deleted || (e.expire != 0 && sh.now() >= e.expire) {
		return false
	}
	e.deleted = true
	e.releaseValue(sh.slab)
	return true
}

// Flush discards every key in the shard: the arena is rewound, the
// slab allocator's free lists are cleared, the index is reset, the
// bloom filter is rebuilt empty, and the hit/miss counters are zeroed,
// matching the reference's flush path.
func (sh *Shard) Flush() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.FlushUnlocked()
}

// FlushUnlocked is Flush without locking.
func (sh *Shard) FlushUnlocked() {
	sh.arena.Flush()
	sh.slab.Reset()
	sh.idx.Reset(initialIndexCapacity)
	sh.bloom.Clear()
	sh.pool.reset()
	sh.hits = 0
	sh.misses = 0
}

// Stats returns a snapshot of the shard's counters.
func (sh *Shard) Stats() Stats {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.StatsUnlocked()
}

// StatsUnlocked is Stats without locking.
func (sh *Shard) StatsUnlocked() Stats {
	return Stats{
		CurrItems: uint64(sh.idx.LiveCount()),
		Bytes:     uint64(sh.arena.Used()),
		GetHits:   sh.hits,
		GetMisses: sh.misses,
	}
}
