// Package store implements the sharded storage engine: a fixed,
// power-of-two array of independent Shards, each combining an arena
// (internal/arena), a slab value allocator (internal/slab), an
// open-addressed hash index (internal/index), and a bloom filter
// (internal/bloom) behind a reader-writer lock.
//
// Data model:
//
// Entry — one live key: a byte sequence key (1-250 bytes), a byte
// sequence value (0 up to a configured per-operation maximum, default
// 1 MiB), an expiration (absolute seconds since epoch, or 0 for
// "never"), a deleted flag, and a value size class identifying how to
// return the value slot to the slab pool. Entries are owned by exactly
// one shard (key and value bytes in its arena, the Entry records in a
// per-shard Go slice outside the arena) and live until the shard is
// flushed or closed;
// entries are never freed individually, only their value slot is
// recycled. Keys, once written, are immutable.
//
// Hash index slot — empty, a tombstone, or a reference to an Entry.
//
// Shard — one arena, one index table (plus a second during
// incremental grow), free-list heads per value size class, counters
// (used, count, hits, misses), and a reader-writer lock. Shards do not
// share state.
//
// Store — S shards where S is a power of two (default 64), plus an
// aggregate configured pool size.
//
// Invariants:
//   - For any live entry e in shard i, hash(e.key) mod S == i.
//   - index.used <= index.capacity; grows when used+1 > capacity*7/10.
//   - Probe sequences are contiguous; tombstones are skipped, never stop a lookup.
//   - During a resize, every live entry appears in exactly one of the two tables.
//   - A value block held by an entry is either arena-only (bump class, never reused) or on no free list; once released it is on exactly one.
//   - expire == 0 means never; otherwise absent once now >= expire.
//   - A connection has exactly one vectored write in flight; new bytes go to the inactive buffer.
package store
