// overlay_alloc.go - Off-screen Video Memory Allocation

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine

License: GPLv3 or later
*/

/*
overlay_alloc.go - Off-screen Video Memory Allocation

Overlay source surfaces and HQV destination buffers live in off-screen VRAM.
Three strategies are available behind SurfaceAllocator:

	linear  first-fit over a free-extent index of the off-screen range
	drm     kernel memory manager through the VIA DRM ioctls
	pool    N equal slots at a fixed offset (legacy layout)

A failed Allocate leaves no state behind.
*/

package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type AllocStrategy int

const (
	ALLOC_LINEAR AllocStrategy = iota
	ALLOC_DRM
	ALLOC_POOL
)

func (s AllocStrategy) String() string {
	switch s {
	case ALLOC_LINEAR:
		return "linear"
	case ALLOC_DRM:
		return "drm"
	case ALLOC_POOL:
		return "pool"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func ParseAllocStrategy(s string) (AllocStrategy, error) {
	switch strings.ToLower(s) {
	case "linear", "":
		return ALLOC_LINEAR, nil
	case "drm":
		return ALLOC_DRM, nil
	case "pool":
		return ALLOC_POOL, nil
	}
	return 0, fmt.Errorf("unknown allocator strategy %q", s)
}

// Allocation is one block of VRAM. The zero value is "not allocated".
type Allocation struct {
	Offset int // byte offset into VRAM
	Size   int
	Handle uint32 // DRM handle
	Slot   int    // pool slot
	valid  bool
}

func (a *Allocation) Valid() bool {
	return a != nil && a.valid
}

// SurfaceAllocator hands out off-screen VRAM.
type SurfaceAllocator interface {
	Allocate(size int) (Allocation, error)
	// Free releases a. It is a no-op on the zero value and on an
	// allocation that was already freed.
	Free(a *Allocation)
	FreeBytes() int
	Strategy() AllocStrategy
}

// AllocatorConfig selects and sizes an allocator.
type AllocatorConfig struct {
	Strategy  AllocStrategy
	Start     int // first off-screen byte
	End       int // one past the last usable byte
	Alignment int
	PoolSlots int
	SlotSize  int
	DRMNode   string
	Logger    zerolog.Logger
}

// NewSurfaceAllocator builds the configured strategy. drm may be nil for
// the linear and pool strategies.
func NewSurfaceAllocator(cfg AllocatorConfig, drm DRMMemoryManager) (SurfaceAllocator, error) {
	if cfg.End <= cfg.Start {
		return nil, fmt.Errorf("allocator range [0x%X, 0x%X) is empty", cfg.Start, cfg.End)
	}
	switch cfg.Strategy {
	case ALLOC_LINEAR:
		return NewLinearAllocator(cfg.Start, cfg.End, cfg.Alignment), nil
	case ALLOC_POOL:
		return NewPoolAllocator(cfg.Start, cfg.PoolSlots, cfg.SlotSize, cfg.End)
	case ALLOC_DRM:
		if drm == nil {
			return nil, fmt.Errorf("drm allocator: no memory manager")
		}
		return NewDRMAllocator(drm, cfg.End-cfg.Start, cfg.Logger), nil
	}
	return nil, fmt.Errorf("allocator strategy %v not supported", cfg.Strategy)
}
