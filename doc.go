// Package emberkv provides a sharded, in-memory key-value cache that
// speaks the memcached text protocol (set, get, delete, flush_all,
// stats, quit) over pipelined, long-lived connections.
//
// # Architecture
//
// emberkv is built from three subsystems:
//
//   - Storage: internal/store shards keys across a fixed power-of-two
//     number of independent stores, each with its own open-addressed
//     hash index (internal/index) over a bump-allocated arena
//     (internal/arena) and a power-of-two slab value allocator
//     (internal/slab).
//   - Protocol: internal/textproto decodes the memcached text dialect
//     and executes commands against a Store.
//   - Serving: internal/server accepts TCP connections and drives one
//     goroutine per connection, all calling into a shared Store through
//     its locked method set.
//
// # Embedding
//
// Programs that want the cache in-process, without the wire protocol,
// can use this package's thin facade over internal/store directly:
//
//	c, err := emberkv.Open(emberkv.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Set([]byte("k"), []byte("v"), 0, 0); err != nil {
//		log.Fatal(err)
//	}
//	value, _, found := c.Get([]byte("k"))
//
// Every method has a lockless *Unlocked counterpart for callers that
// already guarantee single-threaded access to a given Cache and want
// to avoid the RWMutex — see internal/store's doc comment for the
// locking discipline this mirrors.
//
// # Running the server
//
// The standalone binary lives in cmd/server; it wires pkg/config,
// internal/store, internal/server, internal/logging, and (optionally)
// internal/metrics together. See that package for flags and
// environment variables.
package emberkv
