package main

import (
	"fmt"
	"sync"

	"github.com/google/btree"
)

type extent struct {
	off  int
	size int
}

// LinearAllocator is first-fit over free extents ordered by offset.
// Adjacent extents are merged on Free.
type LinearAllocator struct {
	mu    sync.Mutex
	free  *btree.BTreeG[extent]
	align int
	avail int
}

func NewLinearAllocator(start, end, align int) *LinearAllocator {
	if align <= 0 {
		align = OVERLAY_FB_PITCH_A
	}
	a := &LinearAllocator{
		free:  btree.NewG(8, func(x, y extent) bool { return x.off < y.off }),
		align: align,
	}
	start = alignUp(start, align)
	if end > start {
		a.free.ReplaceOrInsert(extent{off: start, size: end - start})
		a.avail = end - start
	}
	return a
}

func (a *LinearAllocator) Allocate(size int) (Allocation, error) {
	if size <= 0 {
		return Allocation{}, fmt.Errorf("allocate %d bytes: invalid size", size)
	}
	size = alignUp(size, a.align)

	a.mu.Lock()
	defer a.mu.Unlock()

	var hit extent
	found := false
	a.free.Ascend(func(e extent) bool {
		if e.size >= size {
			hit, found = e, true
			return false
		}
		return true
	})
	if !found {
		return Allocation{}, fmt.Errorf("allocate %d bytes (%d free): %w", size, a.avail, ErrOutOfVideoMemory)
	}

	a.free.Delete(hit)
	if hit.size > size {
		a.free.ReplaceOrInsert(extent{off: hit.off + size, size: hit.size - size})
	}
	a.avail -= size
	return Allocation{Offset: hit.off, Size: size, valid: true}, nil
}

func (a *LinearAllocator) Free(al *Allocation) {
	if !al.Valid() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	e := extent{off: al.Offset, size: al.Size}
	a.avail += e.size
	*al = Allocation{}

	var prev, next extent
	hasPrev, hasNext := false, false
	a.free.DescendLessOrEqual(e, func(x extent) bool {
		prev, hasPrev = x, true
		return false
	})
	a.free.AscendGreaterOrEqual(e, func(x extent) bool {
		next, hasNext = x, true
		return false
	})
	if hasPrev && prev.off+prev.size == e.off {
		a.free.Delete(prev)
		e = extent{off: prev.off, size: prev.size + e.size}
	}
	if hasNext && e.off+e.size == next.off {
		a.free.Delete(next)
		e.size += next.size
	}
	a.free.ReplaceOrInsert(e)
}

func (a *LinearAllocator) FreeBytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.avail
}

// Extents returns the number of free extents, a fragmentation measure.
func (a *LinearAllocator) Extents() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free.Len()
}

func (a *LinearAllocator) Strategy() AllocStrategy { return ALLOC_LINEAR }
