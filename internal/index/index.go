// Package index implements the per-shard hash index: an open-addressed,
// linear-probed table of entry references with tombstones, grown
// incrementally so no single operation pays for a full rehash.
//
// The index never looks at an entry's bytes directly. It stores an
// opaque Ref per occupied slot and asks a KeySource to resolve a Ref
// to the key bytes (for comparison) and to say whether the entry
// behind a Ref has expired (so migration can drop stale entries
// instead of carrying them into the new table).
package index

import "github.com/emberkv/emberkv/internal/hash"

// Ref identifies an entry. The index treats it as an opaque handle;
// the store package defines what it actually indexes into (its
// per-shard entry pool).
type Ref uint32

// KeySource resolves a Ref to the information the index needs to
// compare and migrate entries without owning entry storage itself.
type KeySource interface {
	KeyAt(ref Ref) []byte
	Expired(ref Ref) bool
}

// MigrateBatch is the number of old-table slots migrated per store
// operation while a resize is in progress.
const MigrateBatch = 16

type slotState uint8

const (
	slotEmpty slotState = iota
	slotTomb
	slotLive
)

type slot struct {
	state slotState
	ref   Ref
}

type table struct {
	slots []slot
	used  int
}

func newTable(capacity int) *table {
	return &table{slots: make([]slot, capacity)}
}

func (t *table) cap() int { return len(t.slots) }

func (t *table) needsGrow() bool {
	return t.used+1 > t.cap()*7/10
}

// probe returns, in order: the slot index and ref of a live match (if
// any), whether a match was found, and the first empty-or-tombstone
// slot index seen along the way (usable for an insert), or -1 if the
// probe ran off without finding one (impossible once the load factor
// invariant holds, since an empty slot always exists).
func (t *table) probe(keys KeySource, hash uint64, key []byte) (matchSlot int, matchRef Ref, found bool, insertSlot int) {
	mask := uint64(len(t.slots) - 1)
	i := hash & mask
	insertSlot = -1
	for {
		s := &t.slots[i]
		switch s.state {
		case slotEmpty:
			if insertSlot == -1 {
				insertSlot = int(i)
			}
			return 0, 0, false, insertSlot
		case slotTomb:
			if insertSlot == -1 {
				insertSlot = int(i)
			}
		case slotLive:
			if bytesEqual(keys.KeyAt(s.ref), key) {
				return int(i), s.ref, true, -1
			}
		}
		i = (i + 1) & mask
	}
}

func (t *table) insertAt(slotIdx int, ref Ref) {
	wasTomb := t.slots[slotIdx].state == slotTomb
	t.slots[slotIdx] = slot{state: slotLive, ref: ref}
	if !wasTomb {
		t.used++
	}
}

func (t *table) tombstone(slotIdx int) {
	t.slots[slotIdx] = slot{state: slotTomb}
}

// Index is one shard's hash table, plus whatever state a resize in
// progress needs.
type Index struct {
	keys       KeySource
	cur        *table
	next       *table // nil unless a resize is in progress
	migratePos int
	count      int // live keys, maintained incrementally across both tables
}

// New creates an Index with the given initial capacity, which must be
// a power of two.
func New(capacity int, keys KeySource) *Index {
	if !hash.IsPowerOfTwo(capacity) {
		capacity = 1 << 14
	}
	return &Index{keys: keys, cur: newTable(capacity)}
}

// Cap returns the capacity of the table currently being inserted
// into: the new table while a resize is in progress, the only table
// otherwise.
func (ix *Index) Cap() int {
	if ix.next != nil {
		return ix.next.cap()
	}
	return ix.cur.cap()
}

// Used returns occupied-plus-tombstoned slots in the active table.
func (ix *Index) Used() int {
	if ix.next != nil {
		return ix.next.used
	}
	return ix.cur.used
}

// Resizing reports whether an incremental grow is in progress.
func (ix *Index) Resizing() bool { return ix.next != nil }

// Lookup finds the Ref for key, consulting the new table first: during
// a resize, a key freshly inserted lives only there.
func (ix *Index) Lookup(h uint64, key []byte) (Ref, bool) {
	if ix.next != nil {
		if _, ref, found, _ := ix.next.probe(ix.keys, h, key); found {
			return ref, true
		}
	}
	_, ref, found, _ := ix.cur.probe(ix.keys, h, key)
	return ref, found
}

// Insert places a brand-new key's ref into the index. Callers must
// already have established via Lookup that the key is absent;
// updating an existing entry never calls Insert — the store mutates
// the Entry behind the existing Ref in place, which is exactly why
// migration is safe to run concurrently with overwrites (the design
// note: "an existing entry matched in the old table is updated in
// place — not moved — because the migration loop will transport it").
func (ix *Index) Insert(h uint64, key []byte, ref Ref) {
	ix.maybeMigrateStep()

	target := ix.cur
	if ix.next != nil {
		target = ix.next
	}
	_, _, found, insertSlot := target.probe(ix.keys, h, key)
	if found {
		return
	}
	target.insertAt(insertSlot, ref)
	ix.count++

	if ix.next == nil && ix.cur.needsGrow() {
		ix.startResize()
	}
}

// Delete tombstones key's slot wherever it is found. Returns the Ref
// that was removed so the caller (the shard) can release its value
// block and mark the entry deleted.
func (ix *Index) Delete(h uint64, key []byte) (Ref, bool) {
	ix.maybeMigrateStep()

	if ix.next != nil {
		if slotIdx, ref, found, _ := ix.next.probe(ix.keys, h, key); found {
			ix.next.tombstone(slotIdx)
			ix.count--
			return ref, true
		}
	}
	if slotIdx, ref, found, _ := ix.cur.probe(ix.keys, h, key); found {
		ix.cur.tombstone(slotIdx)
		ix.count--
		return ref, true
	}
	return 0, false
}

// Reset drops both tables and starts over at the given capacity,
// called when the shard is flushed.
func (ix *Index) Reset(capacity int) {
	if !hash.IsPowerOfTwo(capacity) {
		capacity = 1 << 14
	}
	ix.cur = newTable(capacity)
	ix.next = nil
	ix.migratePos = 0
	ix.count = 0
}

// LiveCount returns the number of live keys. It is maintained
// incrementally on Insert/Delete rather than derived by walking a
// table, since during a resize a live key can be in either cur or
// next and walking just ix.cur would under-report for the whole
// migration window.
func (ix *Index) LiveCount() int { return ix.count }

func (ix *Index) startResize() {
	ix.next = newTable(ix.cur.cap() * 2)
	ix.migratePos = 0
}

// maybeMigrateStep advances a resize in progress by MigrateBatch old
// slots, skipping tombstones, empties, and now-expired entries, and
// swaps the new table in once the old one has been fully scanned.
func (ix *Index) maybeMigrateStep() {
	if ix.next == nil {
		return
	}
	old := ix.cur
	for i := 0; i < MigrateBatch && ix.migratePos < len(old.slots); i++ {
		s := old.slots[ix.migratePos]
		if s.state == slotLive {
			if ix.keys.Expired(s.ref) {
				ix.count--
			} else {
				h := hash.FNV1a64(ix.keys.KeyAt(s.ref))
				_, _, found, insertSlot := ix.next.probe(ix.keys, h, ix.keys.KeyAt(s.ref))
				if !found {
					ix.next.insertAt(insertSlot, s.ref)
				}
			}
		}
		ix.migratePos++
	}
	if ix.migratePos >= len(old.slots) {
		ix.cur = ix.next
		ix.next = nil
		ix.migratePos = 0
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
