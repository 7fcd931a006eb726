package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearAllocator_FirstFitAndCoalesce(t *testing.T) {
	a := NewLinearAllocator(0x1000, 0x1000+0x10000, 32)
	total := a.FreeBytes()
	require.Equal(t, 0x10000, total)

	x, err := a.Allocate(0x1000)
	require.NoError(t, err)
	y, err := a.Allocate(0x2000)
	require.NoError(t, err)
	z, err := a.Allocate(0x1000)
	require.NoError(t, err)
	assert.Equal(t, 0x1000, x.Offset)
	assert.Equal(t, 0x2000, y.Offset)
	assert.Equal(t, 0x4000, z.Offset)

	a.Free(&y)
	assert.Equal(t, 2, a.Extents(), "hole plus tail")

	// First fit reuses the hole.
	w, err := a.Allocate(0x800)
	require.NoError(t, err)
	assert.Equal(t, 0x2000, w.Offset)

	a.Free(&x)
	a.Free(&w)
	a.Free(&z)
	assert.Equal(t, 1, a.Extents(), "free extents must merge back into one")
	assert.Equal(t, total, a.FreeBytes())
}

func TestLinearAllocator_AlignsSizes(t *testing.T) {
	a := NewLinearAllocator(0, 4096, 32)
	x, err := a.Allocate(33)
	require.NoError(t, err)
	assert.Equal(t, 64, x.Size)
	y, err := a.Allocate(1)
	require.NoError(t, err)
	assert.Equal(t, 64, y.Offset)
}

func TestLinearAllocator_OutOfMemoryLeavesNoState(t *testing.T) {
	a := NewLinearAllocator(0, 1024, 32)
	_, err := a.Allocate(2048)
	assert.True(t, errors.Is(err, ErrOutOfVideoMemory))
	assert.Equal(t, 1024, a.FreeBytes())
	assert.Equal(t, 1, a.Extents())

	_, err = a.Allocate(0)
	assert.Error(t, err)
}

func TestLinearAllocator_DoubleFreeIsNoop(t *testing.T) {
	a := NewLinearAllocator(0, 4096, 32)
	x, _ := a.Allocate(1024)
	a.Free(&x)
	a.Free(&x)
	var zero Allocation
	a.Free(&zero)
	assert.Equal(t, 4096, a.FreeBytes())
	assert.False(t, x.Valid())
}

func TestPoolAllocator_Slots(t *testing.T) {
	p, err := NewPoolAllocator(0x100000, 3, 0x10000, 0x200000)
	require.NoError(t, err)
	assert.Equal(t, 3*0x10000, p.FreeBytes())

	var got []Allocation
	for i := 0; i < 3; i++ {
		a, err := p.Allocate(0x8000)
		require.NoError(t, err)
		assert.Equal(t, i, a.Slot)
		assert.Equal(t, 0x100000+i*0x10000, a.Offset)
		got = append(got, a)
	}
	_, err = p.Allocate(16)
	assert.ErrorIs(t, err, ErrOutOfVideoMemory)

	p.Free(&got[1])
	a, err := p.Allocate(16)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Slot)

	_, err = p.Allocate(0x10001)
	assert.ErrorIs(t, err, ErrOutOfVideoMemory, "request larger than a slot")
}

func TestPoolAllocator_RejectsOversizedLayout(t *testing.T) {
	_, err := NewPoolAllocator(0, 16, 0x100000, 0x400000)
	assert.Error(t, err)
	_, err = NewPoolAllocator(0, 0, 0x1000, 0x400000)
	assert.Error(t, err)
}

type fakeDRM struct {
	next    uint32
	handles map[uint32]int
	fail    bool
}

func (f *fakeDRM) Alloc(size int) (uint32, uint32, error) {
	if f.fail {
		return 0, 0, fmt.Errorf("ENOMEM")
	}
	if f.handles == nil {
		f.handles = make(map[uint32]int)
	}
	off := f.next
	f.next += uint32(size)
	h := uint32(len(f.handles) + 1)
	f.handles[h] = size
	return off, h, nil
}

func (f *fakeDRM) Free(handle uint32) error {
	if _, ok := f.handles[handle]; !ok {
		return fmt.Errorf("bad handle %d", handle)
	}
	delete(f.handles, handle)
	return nil
}

func TestDRMAllocator_Accounting(t *testing.T) {
	mgr := &fakeDRM{next: 0x200000}
	d := NewDRMAllocator(mgr, 0x3000, zerolog.Nop())

	a, err := d.Allocate(0x1000)
	require.NoError(t, err)
	assert.Equal(t, 0x200000, a.Offset)
	assert.NotZero(t, a.Handle)
	assert.Equal(t, 0x2000, d.FreeBytes())

	_, err = d.Allocate(0x3000)
	assert.ErrorIs(t, err, ErrOutOfVideoMemory, "over budget")

	d.Free(&a)
	assert.Equal(t, 0x3000, d.FreeBytes())
	assert.Empty(t, mgr.handles)

	mgr.fail = true
	_, err = d.Allocate(0x100)
	assert.ErrorIs(t, err, ErrOutOfVideoMemory)
	assert.Equal(t, 0x3000, d.FreeBytes())
}

func TestDRMAllocator_FreeFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	mgr := &fakeDRM{next: 0x200000}
	d := NewDRMAllocator(mgr, 0x3000, zerolog.New(&buf))

	a, err := d.Allocate(0x1000)
	require.NoError(t, err)
	delete(mgr.handles, a.Handle)

	d.Free(&a)
	assert.Equal(t, 0x3000, d.FreeBytes(), "accounting released")
	assert.False(t, a.Valid())
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "drm free failed")
}

func TestNewSurfaceAllocator_Strategies(t *testing.T) {
	cfg := AllocatorConfig{Start: 0x100000, End: 0x800000, Alignment: 32, PoolSlots: 4, SlotSize: 0x40000}

	cfg.Strategy = ALLOC_LINEAR
	a, err := NewSurfaceAllocator(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ALLOC_LINEAR, a.Strategy())

	cfg.Strategy = ALLOC_POOL
	a, err = NewSurfaceAllocator(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ALLOC_POOL, a.Strategy())

	cfg.Strategy = ALLOC_DRM
	_, err = NewSurfaceAllocator(cfg, nil)
	assert.Error(t, err, "drm without a manager")
	a, err = NewSurfaceAllocator(cfg, &fakeDRM{})
	require.NoError(t, err)
	assert.Equal(t, 0x700000, a.FreeBytes())

	cfg.End = cfg.Start
	_, err = NewSurfaceAllocator(cfg, nil)
	assert.Error(t, err)
}

func TestParseAllocStrategy(t *testing.T) {
	for in, want := range map[string]AllocStrategy{"": ALLOC_LINEAR, "linear": ALLOC_LINEAR, "DRM": ALLOC_DRM, "pool": ALLOC_POOL} {
		got, err := ParseAllocStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		if in != "" {
			assert.Equal(t, want.String(), got.String())
		}
	}
	_, err := ParseAllocStrategy("buddy")
	assert.Error(t, err)
}
