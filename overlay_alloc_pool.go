package main

import (
	"fmt"
	"sync"
)

// PoolAllocator divides a fixed region into equal slots. Requests larger
// than a slot fail.
type PoolAllocator struct {
	mu       sync.Mutex
	base     int
	slotSize int
	used     []bool
}

func NewPoolAllocator(base, slots, slotSize, end int) (*PoolAllocator, error) {
	if slots <= 0 || slotSize <= 0 {
		return nil, fmt.Errorf("pool allocator: %d slots of %d bytes", slots, slotSize)
	}
	base = alignUp(base, OVERLAY_FB_PITCH_A)
	slotSize = alignUp(slotSize, OVERLAY_FB_PITCH_A)
	if base+slots*slotSize > end {
		return nil, fmt.Errorf("pool allocator: %d x %d bytes at 0x%X exceeds VRAM end 0x%X",
			slots, slotSize, base, end)
	}
	return &PoolAllocator{base: base, slotSize: slotSize, used: make([]bool, slots)}, nil
}

func (p *PoolAllocator) Allocate(size int) (Allocation, error) {
	if size <= 0 {
		return Allocation{}, fmt.Errorf("allocate %d bytes: invalid size", size)
	}
	if size > p.slotSize {
		return Allocation{}, fmt.Errorf("allocate %d bytes: slot is %d: %w", size, p.slotSize, ErrOutOfVideoMemory)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, u := range p.used {
		if !u {
			p.used[i] = true
			return Allocation{Offset: p.base + i*p.slotSize, Size: p.slotSize, Slot: i, valid: true}, nil
		}
	}
	return Allocation{}, fmt.Errorf("allocate %d bytes: all %d slots in use: %w", size, len(p.used), ErrOutOfVideoMemory)
}

func (p *PoolAllocator) Free(a *Allocation) {
	if !a.Valid() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if a.Slot >= 0 && a.Slot < len(p.used) {
		p.used[a.Slot] = false
	}
	*a = Allocation{}
}

func (p *PoolAllocator) FreeBytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, u := range p.used {
		if !u {
			n += p.slotSize
		}
	}
	return n
}

func (p *PoolAllocator) Strategy() AllocStrategy { return ALLOC_POOL }
