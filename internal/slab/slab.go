// Package slab implements the per-shard value allocator: a set of
// power-of-two size-classed free lists layered over an arena. Blocks
// are carved from the arena a page at a time and recycled on
// overwrite or delete, keeping the hot set/delete path free of any
// call into the arena once a class has been warmed up.
package slab

import (
	"encoding/binary"

	"github.com/emberkv/emberkv/internal/arena"
)

const (
	// MinShift and MaxShift bound the size classes: blocks smaller
	// than 2^MinShift are rounded up, blocks larger than 2^MaxShift
	// go to the bump class and are never reused.
	MinShift = 6  // 64 B
	MaxShift = 12 // 4 KiB

	// BumpClass marks a value that was allocated directly from the
	// arena and must never be pushed onto a free list.
	BumpClass uint8 = 255

	// PageSize is the default amount carved from the arena at once
	// when a size class's free list runs dry.
	PageSize = 64 * 1024

	// PrewarmPages is the number of pages carved into each size
	// class's free list when a shard is created.
	PrewarmPages = 4

	nextPtrSize = 8 // bytes of a free block reused to store the next offset
	noNext      = ^uint64(0)
)

// Allocator carves value blocks out of an Arena and recycles them by
// size class. It is not safe for concurrent use; the owning Shard's
// lock (or single-threaded discipline) protects it.
type Allocator struct {
	arena *arena.Arena
	free  [MaxShift + 1]uint64 // free list head offset per class, noNext if empty
}

// New creates an Allocator over the given Arena and pre-warms every
// size class with PrewarmPages pages so the first several thousand
// stores are an O(1) free-list pop rather than a page carve.
func New(a *arena.Arena) (*Allocator, error) {
	s := &Allocator{arena: a}
	for c := range s.free {
		s.free[c] = noNext
	}
	for class := MinShift; class <= MaxShift; class++ {
		for i := 0; i < PrewarmPages; i++ {
			if err := s.refill(uint8(class)); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}

// ClassFor returns the size class that fits n bytes: the smallest
// power of two no smaller than n, clamped to [MinShift, MaxShift], or
// BumpClass if n exceeds 2^MaxShift.
func ClassFor(n int) uint8 {
	if n <= 0 {
		n = 1
	}
	shift := uint8(0)
	cap := ceilPow2(uint32(n))
	for (uint32(1) << shift) < cap {
		shift++
	}
	if shift < MinShift {
		shift = MinShift
	}
	if shift > MaxShift {
		return BumpClass
	}
	return shift
}

// ClassSize returns the block size in bytes for a size class.
func ClassSize(class uint8) int { return 1 << class }

// Alloc returns an n-byte block and the size class it was drawn from.
// Blocks in the bump class come straight from the arena and are
// never returned to a free list by Free.
func (s *Allocator) Alloc(n int) (data []byte, offset int, class uint8, err error) {
	class = ClassFor(n)
	if class == BumpClass {
		data, offset, err = s.arena.Alloc(n)
		return data, offset, class, err
	}

	if s.free[class] == noNext {
		if err := s.refill(class); err != nil {
			return nil, 0, class, err
		}
	}

	offset = int(s.free[class])
	size := ClassSize(class)
	block := s.arena.At(offset, size)
	s.free[class] = binary.LittleEndian.Uint64(block[:nextPtrSize])
	return block[:n], offset, class, nil
}

// Free returns a previously allocated block to its size class's free
// list. Bump-class blocks are never tracked and this is a no-op for
// them: they live until the next Flush.
func (s *Allocator) Free(offset int, class uint8) {
	if class == BumpClass {
		return
	}
	size := ClassSize(class)
	block := s.arena.At(offset, size)
	binary.LittleEndian.PutUint64(block[:nextPtrSize], s.free[class])
	s.free[class] = uint64(offset)
}

// Reset clears every free list head. Called after the owning Arena
// has been flushed, since every block it ever handed out is now
// invalid.
func (s *Allocator) Reset() {
	for c := range s.free {
		s.free[c] = noNext
	}
}

// refill carves one page out of the arena for class and chains every
// block in it onto the class's free list.
func (s *Allocator) refill(class uint8) error {
	size := ClassSize(class)
	pageBytes := PageSize
	if min := 8 * size; pageBytes < min {
		pageBytes = min
	}
	pageBytes = (pageBytes + size - 1) / size * size

	page, base, err := s.arena.Alloc(pageBytes)
	if err != nil {
		return err
	}
	for off := 0; off+size <= len(page); off += size {
		blockOffset := base + off
		block := page[off : off+size]
		binary.LittleEndian.PutUint64(block[:nextPtrSize], s.free[class])
		s.free[class] = uint64(blockOffset)
	}
	return nil
}

func ceilPow2(x uint32) uint32 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	return x + 1
}
