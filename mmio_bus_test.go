package main

import (
	"encoding/binary"
	"testing"
)

func TestSystemBus_VRAMAndAperture(t *testing.T) {
	bus := NewSystemBus(1000)
	if bus.VRAMSize() != 1024 {
		t.Fatalf("VRAM size %d, want rounded up to 1024", bus.VRAMSize())
	}
	if bus.MMIOBase() != 1024 {
		t.Fatalf("MMIO base 0x%X, want 0x400", bus.MMIOBase())
	}

	bus.Write32(0x10, 0xCAFEBABE)
	if got := binary.LittleEndian.Uint32(bus.VRAM()[0x10:]); got != 0xCAFEBABE {
		t.Fatalf("VRAM holds 0x%08X", got)
	}
	if got := bus.Read32(0x10); got != 0xCAFEBABE {
		t.Fatalf("Read32 0x%08X", got)
	}

	// Out of range accesses are dropped.
	end := bus.MMIOBase() + OVERLAY_MMIO_SIZE
	bus.Write32(end, 1)
	if got := bus.Read32(end - 2); got != 0 {
		t.Fatalf("straddling read returned 0x%08X", got)
	}
}

func TestSystemBus_MappedCallbacks(t *testing.T) {
	bus := NewSystemBus(4096)
	base := bus.MMIOBase()
	var wrote []uint32
	bus.MapIO(base+0x200, base+0x2FF,
		func(addr uint32) uint32 { return 0x1234 },
		func(addr uint32, value uint32) { wrote = append(wrote, addr-base, value) },
	)

	bus.Write32(base+0x230, 7)
	if len(wrote) != 2 || wrote[0] != 0x230 || wrote[1] != 7 {
		t.Fatalf("onWrite saw %v", wrote)
	}
	if got := bus.Peek32(base + 0x230); got != 7 {
		t.Fatalf("store not kept: 0x%X", got)
	}
	if got := bus.Read32(base + 0x230); got != 0x1234 {
		t.Fatalf("onRead not used: 0x%X", got)
	}
	if got := bus.Peek32(base + 0x230); got != 0x1234 {
		t.Fatalf("read value not stored back: 0x%X", got)
	}

	// Unmapped aperture words are plain memory.
	bus.Write32(base+0x100, 9)
	if got := bus.Read32(base + 0x100); got != 9 || len(wrote) != 2 {
		t.Fatalf("unmapped word: 0x%X, writes %v", got, wrote)
	}
}

func TestSystemBus_PokeBypassesCallbacks(t *testing.T) {
	bus := NewSystemBus(4096)
	base := bus.MMIOBase()
	called := false
	bus.MapIO(base+0x200, base+0x3FF, nil, func(uint32, uint32) { called = true })
	bus.Poke32(base+0x298, 0x80000000)
	if called {
		t.Fatal("Poke32 invoked the write callback")
	}
	if got := bus.Read32(base + 0x298); got != 0x80000000 {
		t.Fatalf("Read32 0x%08X", got)
	}

	bus.Reset()
	if got := bus.Peek32(base + 0x298); got != 0 {
		t.Fatalf("Reset left 0x%08X", got)
	}
}

func TestBusDevice_RelativeOffsets(t *testing.T) {
	bus := NewSystemBus(8192)
	dev := NewBusDevice(bus)
	dev.Write32(V_COLOR_KEY, 0xFF00FF)
	if got := bus.Peek32(bus.MMIOBase() + V_COLOR_KEY); got != 0xFF00FF {
		t.Fatalf("aperture holds 0x%08X", got)
	}
	if got := dev.Read32(V_COLOR_KEY); got != 0xFF00FF {
		t.Fatalf("Read32 0x%08X", got)
	}
	if len(dev.VRAM()) != 8192 || dev.VRAMBase() != 0 {
		t.Fatalf("VRAM %d bytes at 0x%X", len(dev.VRAM()), dev.VRAMBase())
	}
}
