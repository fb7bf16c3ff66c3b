package emberkv

import "github.com/emberkv/emberkv/internal/store"

// Version is the protocol-compatible version string reported by the
// stats command.
const Version = "1.0.0"

// Config configures an embedded Cache. Zero values fall back to the
// same defaults the standalone server uses.
type Config struct {
	ShardCount int // must be a power of two; 0 selects the default
	PoolBytes  int // total arena bytes across every shard; 0 selects the default
}

// GetIntoStatus reports the outcome of a GetInto call.
type GetIntoStatus = store.GetIntoStatus

const (
	GetIntoNotFound = store.GetIntoNotFound
	GetIntoOK       = store.GetIntoOK
	GetIntoTooSmall = store.GetIntoTooSmall
)

// Stats is a point-in-time snapshot of the cache's aggregate counters.
type Stats = store.Stats

// Cache is an embedded, in-process handle to a sharded store, for
// programs that want emberkv's storage engine without the memcached
// wire protocol in front of it.
type Cache struct {
	s *store.Store
}

// Open creates a Cache per cfg.
func Open(cfg Config) (*Cache, error) {
	s, err := store.Open(store.Config{ShardCount: cfg.ShardCount, PoolBytes: cfg.PoolBytes})
	if err != nil {
		return nil, err
	}
	return &Cache{s: s}, nil
}

// Close releases every shard's backing memory. The Cache must not be
// used afterwards.
func (c *Cache) Close() error { return c.s.Close() }

// Set stores value under key with the given flags and absolute
// expiration (expireAt is Unix seconds; 0 means never).
func (c *Cache) Set(key, value []byte, flags uint32, expireAt int64) error {
	return c.s.Set(key, value, flags, expireAt)
}

// SetUnlocked is Set without locking, for callers that already
// guarantee single-threaded access to this Cache.
func (c *Cache) SetUnlocked(key, value []byte, flags uint32, expireAt int64) error {
	return c.s.SetUnlocked(key, value, flags, expireAt)
}

// Get looks up key. The returned slice aliases shard-owned memory and
// is only valid until the next mutation of that shard.
func (c *Cache) Get(key []byte) (value []byte, flags uint32, found bool) {
	return c.s.Get(key)
}

// GetUnlocked is Get without locking.
func (c *Cache) GetUnlocked(key []byte) (value []byte, flags uint32, found bool) {
	return c.s.GetUnlocked(key)
}

// GetInto copies key's value into dst, reporting whether it fit.
func (c *Cache) GetInto(key []byte, dst []byte) (n, required int, status GetIntoStatus) {
	return c.s.GetInto(key, dst)
}

// GetIntoUnlocked is GetInto without locking.
func (c *Cache) GetIntoUnlocked(key []byte, dst []byte) (n, required int, status GetIntoStatus) {
	return c.s.GetIntoUnlocked(key, dst)
}

// Delete removes key, returning whether it was present.
func (c *Cache) Delete(key []byte) bool { return c.s.Delete(key) }

// DeleteUnlocked is Delete without locking.
func (c *Cache) DeleteUnlocked(key []byte) bool { return c.s.DeleteUnlocked(key) }

// Flush discards every key in every shard.
func (c *Cache) Flush() { c.s.Flush() }

// FlushUnlocked is Flush without locking.
func (c *Cache) FlushUnlocked() { c.s.FlushUnlocked() }

// Stats aggregates counters across every shard.
func (c *Cache) Stats() Stats { return c.s.Stats() }

// StatsUnlocked is Stats without locking.
func (c *Cache) StatsUnlocked() Stats { return c.s.StatsUnlocked() }
