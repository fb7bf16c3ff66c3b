// Package bloom wraps a per-shard bloom filter used purely as a
// fast-reject hint ahead of a hash-index probe. It never changes the
// answer to Get — it can only let a shard skip the probe on a
// definite miss. The wire-level `stats` output still reports the
// fixed bloom_bits/bloom_fill_pct compatibility values mandated by
// the protocol regardless of what this filter's real occupancy is;
// those fields describe nothing about this implementation, by
// design, and this package is not where they are produced.
package bloom

import "github.com/AndreasBriese/bbloom"

// Filter is a thin, shard-scoped wrapper over bbloom.Bloom.
type Filter struct {
	bloom    bbloom.Bloom
	capacity float64
	fprate   float64
}

// New creates a Filter sized for capacity expected entries at the
// given target false-positive rate.
func New(capacity uint64, falsePositiveRate float64) *Filter {
	if capacity == 0 {
		capacity = 1
	}
	return &Filter{
		bloom:    bbloom.New(float64(capacity), falsePositiveRate),
		capacity: float64(capacity),
		fprate:   falsePositiveRate,
	}
}

// Add records key as present.
func (f *Filter) Add(key []byte) { f.bloom.Add(key) }

// MaybeHas reports whether key might be present. false is a
// definite answer (the key is absent); true means "probe the index
// to be sure."
func (f *Filter) MaybeHas(key []byte) bool { return f.bloom.Has(key) }

// Clear discards all recorded keys, used when the owning shard is
// flushed. A fresh filter is built rather than relying on an in-place
// reset, keeping this wrapper independent of whichever bbloom release
// is vendored.
func (f *Filter) Clear() { f.bloom = bbloom.New(f.capacity, f.fprate) }
