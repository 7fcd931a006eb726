package main

import (
	"image"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// fakeDevice is a register file with just enough behaviour for the flip
// controller: fire bits and HQV flip status clear after retireAfter reads
// unless stalled. Every store is recorded.
type fakeDevice struct {
	mu          sync.Mutex
	regs        map[uint32]uint32
	vram        []byte
	writes      []RegisterWrite
	retireAfter int
	fireReads   int
	flipReads   int
	stall       bool
	fires       int
	hqvFlips    int
}

func newFakeDevice(vramSize int) *fakeDevice {
	return &fakeDevice{
		regs:        make(map[uint32]uint32),
		vram:        make([]byte, vramSize),
		retireAfter: 1,
	}
}

func (d *fakeDevice) Write32(reg uint32, value uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, RegisterWrite{Addr: reg, Value: value})
	switch reg {
	case V_COMPOSE_MODE:
		if value&COMPOSE_FIRE_MASK != 0 {
			d.fires++
			d.fireReads = 0
		}
	case HQV_CONTROL:
		if value&HQV_SW_FLIP != 0 {
			d.hqvFlips++
			d.flipReads = 0
			value = value&^HQV_SW_FLIP | HQV_FLIP_STATUS
		}
	}
	d.regs[reg] = value
}

func (d *fakeDevice) Read32(reg uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.regs[reg]
	switch {
	case reg == V_COMPOSE_MODE && v&COMPOSE_FIRE_MASK != 0 && !d.stall:
		d.fireReads++
		if d.fireReads >= d.retireAfter {
			v &^= COMPOSE_FIRE_MASK
			d.regs[reg] = v
		}
	case reg == HQV_CONTROL && v&HQV_FLIP_STATUS != 0 && !d.stall:
		d.flipReads++
		if d.flipReads >= d.retireAfter {
			v &^= HQV_FLIP_STATUS
			d.regs[reg] = v
		}
	}
	return v
}

func (d *fakeDevice) VRAM() []byte     { return d.vram }
func (d *fakeDevice) VRAMBase() uint32 { return 0 }

func (d *fakeDevice) setStall(on bool) {
	d.mu.Lock()
	d.stall = on
	d.mu.Unlock()
}

func (d *fakeDevice) reg(r uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[r]
}

// writesTo returns the recorded stores to reg in order.
func (d *fakeDevice) writesTo(reg uint32) []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []uint32
	for _, w := range d.writes {
		if w.Addr == reg {
			out = append(out, w.Value)
		}
	}
	return out
}

func (d *fakeDevice) counts() (fires, flips int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fires, d.hqvFlips
}

// fastPoll keeps timeout tests short.
var fastPoll = PollLimits{Spins: 4, MaxPolls: 32, MaxBackoff: 0}

func mustRevision(t testing.TB, name string) RevisionProfile {
	t.Helper()
	rev, err := LookupRevision(name)
	if err != nil {
		t.Fatalf("LookupRevision(%q): %v", name, err)
	}
	return rev
}

var testScreen = ScreenInfo{Width: 640, Height: 480, Depth: 32}

// testRig is an engine driving the emulated chip over a bus.
type testRig struct {
	engine *OverlayEngine
	bus    *SystemBus
	chip   *OverlayChip
	alloc  SurfaceAllocator
}

func newTestRig(t testing.TB, revName string) *testRig {
	t.Helper()
	rev := mustRevision(t, revName)
	bus := NewSystemBus(4 * 1024 * 1024)
	chip := NewOverlayChip(bus, ChipConfig{
		Screen:          testScreen,
		TwoColorKeys:    rev.TwoColorKeys(),
		HQVByteFetch:    rev.HQVFetchByteUnit(),
		AutoRetirePolls: 1,
	}, zerolog.Nop())
	fbSize := testScreen.Width * testScreen.Height * 4
	alloc, err := NewSurfaceAllocator(AllocatorConfig{
		Strategy:  ALLOC_LINEAR,
		Start:     alignUp(fbSize, OVERLAY_SURFACE_ALIGN),
		End:       bus.VRAMSize(),
		Alignment: OVERLAY_FB_PITCH_A,
	}, nil)
	if err != nil {
		t.Fatalf("NewSurfaceAllocator: %v", err)
	}
	engine, err := NewOverlayEngine(EngineOptions{
		Device:    NewBusDevice(bus),
		Revision:  rev,
		Allocator: alloc,
		Screen:    testScreen,
		Poll:      fastPoll,
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewOverlayEngine: %v", err)
	}
	return &testRig{engine: engine, bus: bus, chip: chip, alloc: alloc}
}

func rect(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

// planRequest returns a packed request with valid addresses for the given
// geometry on the primary pipeline.
func planRequest(rev RevisionProfile, format FourCC, srcW, srcH, dstW, dstH int) PlanRequest {
	pitch := format.MinPitch(srcW)
	req := PlanRequest{
		Src:        rect(0, 0, srcW, srcH),
		Dst:        rect(0, 0, dstW, dstH),
		Format:     format,
		OrigWidth:  srcW,
		OrigHeight: srcH,
		OrigPitch:  pitch,
		Pipeline:   PIPE_PRIMARY,
		SrcY:       0x200000,
		Screen:     ScreenInfo{Width: 1920, Height: 1200, Depth: 32},
		Rev:        rev,
	}
	if format.IsPlanar() {
		req.SrcU = req.SrcY + uint32(pitch*srcH)
		req.SrcV = req.SrcU + uint32(pitch/2*((srcH+1)/2))
	}
	return req
}
