// Package arena implements the per-shard bump allocator.
//
// An Arena owns one contiguous backing region and hands out 8-byte
// aligned slices from it with a monotonically increasing offset.
// Nothing is ever freed individually: the only reset operation is
// Flush, which rewinds the offset to zero. Keys and slab pages (and
// bump-class values) are carved from the same region; entry records
// are not stored here.
package arena

import "errors"

// alignment is the granularity every allocation is rounded up to.
const alignment = 8

// ErrOutOfMemory is returned when the remaining tail of the region
// cannot satisfy a request.
var ErrOutOfMemory = errors.New("arena: out of memory")

// Arena is a monotonic bump allocator over a single backing region.
// It is not safe for concurrent use; callers (the Shard) serialize
// access with their own lock.
type Arena struct {
	region backing
	pos    int
}

// New creates an Arena with the given capacity in bytes. The backing
// region is pre-touched one byte per page so the steady-state fast
// path never pays a first-fault cost.
func New(size int) (*Arena, error) {
	if size < 0 {
		size = 0
	}
	region, err := newBacking(size)
	if err != nil {
		return nil, err
	}
	touch(region.bytes())
	return &Arena{region: region}, nil
}

// Cap returns the total capacity of the region in bytes.
func (a *Arena) Cap() int { return len(a.region.bytes()) }

// Used returns the number of bytes currently allocated.
func (a *Arena) Used() int { return a.pos }

// Alloc returns n bytes aligned to 8 and the offset they start at
// within the region, or ErrOutOfMemory if the tail cannot serve the
// request. The returned slice aliases the arena's backing storage and
// is valid until the next Flush or Close.
func (a *Arena) Alloc(n int) (data []byte, offset int, err error) {
	aligned := alignUp(n)
	region := a.region.bytes()
	if a.pos+aligned > len(region) {
		return nil, 0, ErrOutOfMemory
	}
	offset = a.pos
	b := region[offset : offset+aligned : offset+aligned]
	a.pos += aligned
	return b[:n], offset, nil
}

// At returns the n-byte slice starting at offset within the region.
// Callers (the slab allocator, the index when resolving an entry)
// use this to turn a stored offset back into bytes.
func (a *Arena) At(offset, n int) []byte {
	region := a.region.bytes()
	return region[offset : offset+n : offset+n]
}

// Flush resets the bump offset to zero. It does not zero the region;
// the first bytes written by a subsequent Alloc overwrite whatever
// was there, and nothing outside the arena retains a reference to the
// old contents once the index and free lists referencing them are
// also reset.
func (a *Arena) Flush() {
	a.pos = 0
}

// Close releases the backing region. The Arena must not be used
// afterwards.
func (a *Arena) Close() error {
	return a.region.release()
}

func alignUp(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + alignment - 1) &^ (alignment - 1)
}
