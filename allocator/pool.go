package allocator

import (
	"unsafe"

	"github.com/boljen/go-bitmap"
	"github.com/embedfs/fat32/errors"
)

// PoolAllocator is a fixed-size byte-granular arena allocator: a first-fit
// search over a bitmap of used/free bytes, with the search cursor resuming
// from just past the last allocation (wrapping around once) instead of
// restarting from zero every time.
//
// Grounded on original_source/src/pool_memory.c's pool_alloc/pool_free_region
// (byte-granular bitmap, two-pass wraparound first-fit search, last-free-block
// cursor) and on the teacher's drivers/common/allocatormap.go (Allocator
// struct wrapping a github.com/boljen/go-bitmap.Bitmap, first-fit findRun).
type PoolAllocator struct {
	arena     []byte
	used      bitmap.Bitmap
	searchPos int
}

// NewPoolAllocator creates a PoolAllocator managing arenaSize bytes.
func NewPoolAllocator(arenaSize uint) *PoolAllocator {
	return &PoolAllocator{
		arena: make([]byte, arenaSize),
		used:  bitmap.New(int(arenaSize)),
	}
}

// Init resets the allocator to a fully-free state. Matches pool_init's
// idempotent reset of the bitmap and cursor.
func (p *PoolAllocator) Init() error {
	for i := range p.arena {
		p.arena[i] = 0
	}
	p.used = bitmap.New(len(p.arena))
	p.searchPos = 0
	return nil
}

// Alloc returns a zero-initialized slice of size bytes backed by the pool's
// arena, or ErrOutOfMemory if no run of that length is free.
func (p *PoolAllocator) Alloc(size uint) ([]byte, error) {
	if size == 0 {
		return nil, errors.ErrAllocInvalidArg.WithMessage("size must be > 0")
	}
	n := len(p.arena)
	need := int(size)
	if need > n {
		return nil, errors.ErrOutOfMemory
	}

	start, ok := p.findRun(need)
	if !ok {
		return nil, errors.ErrOutOfMemory
	}

	for i := start; i < start+need; i++ {
		p.used.Set(i, true)
	}

	p.searchPos = start + need
	for p.searchPos < n && p.used.Get(p.searchPos) {
		p.searchPos++
	}
	if p.searchPos >= n {
		p.searchPos = 0
	}

	region := p.arena[start : start+need]
	for i := range region {
		region[i] = 0
	}
	return region, nil
}

// findRun performs the same two-pass wraparound scan as pool_alloc: search
// from searchPos to the end of the arena, then (if nothing fits) from the
// start back to searchPos.
func (p *PoolAllocator) findRun(need int) (int, bool) {
	n := len(p.arena)
	for pass := 0; pass < 2; pass++ {
		limit := n
		if pass == 1 {
			limit = p.searchPos
		}
		searchStart := p.searchPos
		if pass == 1 {
			searchStart = 0
		}

		run := 0
		runStart := 0
		for i := searchStart; i < limit; i++ {
			if !p.used.Get(i) {
				if run == 0 {
					runStart = i
				}
				run++
				if run >= need {
					return runStart, true
				}
			} else {
				run = 0
			}
		}
	}
	return 0, false
}

// Free releases a previously-allocated region. buf must be a slice returned
// by Alloc and size must match the size originally passed to that Alloc
// call, matching pool_free_region's signature.
func (p *PoolAllocator) Free(buf []byte, size uint) error {
	if buf == nil || size == 0 {
		return errors.ErrAllocInvalidArg
	}

	start, err := p.offsetOf(buf)
	if err != nil {
		return err
	}

	end := start + int(size)
	if end > len(p.arena) {
		return errors.ErrAllocOutOfRange
	}

	for i := start; i < end; i++ {
		p.used.Set(i, false)
		if i < p.searchPos {
			p.searchPos = start
		}
	}
	return nil
}

// offsetOf validates that buf's backing array lies within the pool's arena
// and returns its starting offset. The pool hands out sub-slices of a
// single backing array, so pointer comparison (not a registry) is enough to
// recover the offset pool_free_region computes from C pointer arithmetic.
func (p *PoolAllocator) offsetOf(buf []byte) (int, error) {
	if len(p.arena) == 0 || len(buf) == 0 {
		return 0, errors.ErrAllocOutOfRange
	}
	arenaStart := uintptr(unsafe.Pointer(&p.arena[0]))
	bufStart := uintptr(unsafe.Pointer(&buf[0]))
	if bufStart < arenaStart || bufStart >= arenaStart+uintptr(len(p.arena)) {
		return 0, errors.ErrAllocOutOfRange
	}
	return int(bufStart - arenaStart), nil
}
