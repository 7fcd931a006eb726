package main

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DRMMemoryManager is the kernel video memory manager.
type DRMMemoryManager interface {
	Alloc(size int) (offset uint32, handle uint32, err error)
	Free(handle uint32) error
}

// DRMAllocator delegates placement to the kernel and keeps its own
// accounting against budget.
type DRMAllocator struct {
	mu     sync.Mutex
	mgr    DRMMemoryManager
	budget int
	used   int
	log    zerolog.Logger
}

func NewDRMAllocator(mgr DRMMemoryManager, budget int, log zerolog.Logger) *DRMAllocator {
	return &DRMAllocator{mgr: mgr, budget: budget, log: log}
}

func (d *DRMAllocator) Allocate(size int) (Allocation, error) {
	if size <= 0 {
		return Allocation{}, fmt.Errorf("allocate %d bytes: invalid size", size)
	}
	size = alignUp(size, OVERLAY_FB_PITCH_A)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.used+size > d.budget {
		return Allocation{}, fmt.Errorf("allocate %d bytes (%d of %d used): %w", size, d.used, d.budget, ErrOutOfVideoMemory)
	}
	off, h, err := d.mgr.Alloc(size)
	if err != nil {
		return Allocation{}, fmt.Errorf("drm alloc %d bytes: %v: %w", size, err, ErrOutOfVideoMemory)
	}
	d.used += size
	return Allocation{Offset: int(off), Size: size, Handle: h, valid: true}, nil
}

func (d *DRMAllocator) Free(a *Allocation) {
	if !a.Valid() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// The local accounting is released even if the kernel refuses.
	if err := d.mgr.Free(a.Handle); err != nil {
		d.log.Warn().Err(err).Uint32("handle", a.Handle).Int("size", a.Size).Msg("[alloc] drm free failed, block may leak until close")
	}
	d.used -= a.Size
	*a = Allocation{}
}

func (d *DRMAllocator) FreeBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.budget - d.used
}

func (d *DRMAllocator) Strategy() AllocStrategy { return ALLOC_DRM }
