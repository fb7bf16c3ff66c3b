package store

import (
	"github.com/emberkv/emberkv/internal/arena"
	"github.com/emberkv/emberkv/internal/index"
	"github.com/emberkv/emberkv/internal/slab"
)

// Entry is the metadata for one live key. The key and value bytes
// themselves live in the shard's arena; an Entry only records where.
// This is the safe-language stand-in for a tagged-pointer slot: the
// index stores an index.Ref (a plain slice position) rather than an
// address, and entryPool is the per-shard entry pool backing it. The
// pool is an ordinary Go slice; it is not carved from the arena.
type Entry struct {
	keyOff   int
	keyLen   int
	valOff   int
	valLen   int
	valClass uint8
	flags    uint32
	expire   int64 // absolute unix seconds; 0 means never
	deleted  bool
}

// entryPool is an append-only slice of Entry, indexed by index.Ref.
// Entries are never removed from the pool individually; a deleted
// entry's value slot is returned to the slab allocator but the Entry
// record itself persists until the shard is flushed, at which point
// the whole pool resets.
type entryPool struct {
	entries []Entry
}

func (p *entryPool) add(e Entry) index.Ref {
	ref := index.Ref(len(p.entries))
	p.entries = append(p.entries, e)
	return ref
}

func (p *entryPool) at(ref index.Ref) *Entry { return &p.entries[ref] }

func (p *entryPool) reset() { p.entries = p.entries[:0] }

// poolKeySource adapts a shard's arena and entry pool into the
// index.KeySource the hash index needs to compare keys and decide
// what to drop during incremental migration.
type poolKeySource struct {
	arena *arena.Arena
	pool  *entryPool
	now   func() int64
}

func (k poolKeySource) KeyAt(ref index.Ref) []byte {
	e := k.pool.at(ref)
	return k.arena.At(e.keyOff, e.keyLen)
}

func (k poolKeySource) Expired(ref index.Ref) bool {
	e := k.pool.at(ref)
	return e.deleted || (e.expire != 0 && k.now() >= e.expire)
}

// releaseValue returns e's current value block to the slab allocator.
// Free is a no-op for bump-class blocks, which are never reused.
func (e *Entry) releaseValue(s *slab.Allocator) {
	s.Free(e.valOff, e.valClass)
	e.valOff, e.valLen = 0, 0
}
