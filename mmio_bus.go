// mmio_bus.go - Register and VRAM Bus

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
mmio_bus.go - Device Bus for the emulated overlay

The bus models the graphics function as the scaler sees it: one contiguous
little-endian block holding video memory, followed by the register
aperture. Register pages are memory-mapped I/O regions with read and write
callbacks, so the emulated chip can react to stores (fire bits, HQV flips)
and synthesise status on loads.

Core Features:

    VRAM and the register aperture in one block, VRAM at device address 0.
    I/O regions looked up by page key (address & PAGE_MASK, 0x100 pages).
    Little-endian 32-bit access through encoding/binary.
    Thread-safe with a read/write mutex; the compositor reads VRAM while
    the engine programs registers.

BusDevice presents a bus as the OverlayDevice the engine drives.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	WORD_SIZE = 4
	PAGE_SIZE = 0x100
	PAGE_MASK = 0xFFFFFF00

	DEFAULT_VRAM_SIZE = 8 * 1024 * 1024
)

type MemoryBus interface {
	/*
		MemoryBus is 32-bit access to the device address space.
	*/

	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	Reset()
}

type SystemBus struct {
	/*
		SystemBus holds VRAM and the register aperture in one block.

		mmioBase is the first byte of the register aperture; everything
		below it is video memory.
	*/

	memory   []byte
	mutex    sync.RWMutex
	mapping  map[uint32][]IORegion
	mmioBase uint32
}

type IORegion struct {
	start   uint32
	end     uint32
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
}

func NewSystemBus(vramSize int) *SystemBus {
	/*
		NewSystemBus allocates vramSize bytes of video memory, rounded up
		to a page, followed by the register aperture.
	*/

	if vramSize <= 0 {
		vramSize = DEFAULT_VRAM_SIZE
	}
	vramSize = alignUp(vramSize, PAGE_SIZE)
	return &SystemBus{
		memory:   make([]byte, vramSize+OVERLAY_MMIO_SIZE),
		mapping:  make(map[uint32][]IORegion),
		mmioBase: uint32(vramSize),
	}
}

func (bus *SystemBus) MMIOBase() uint32 { return bus.mmioBase }

func (bus *SystemBus) VRAMSize() int { return int(bus.mmioBase) }

func (bus *SystemBus) MapIO(start, end uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) {
	/*
		MapIO registers an I/O region on every page it spans. Offsets
		passed to the callbacks are absolute bus addresses.
	*/

	region := IORegion{
		start:   start,
		end:     end,
		onRead:  onRead,
		onWrite: onWrite,
	}
	firstPage := start & PAGE_MASK
	lastPage := end & PAGE_MASK
	for page := firstPage; page <= lastPage; page += PAGE_SIZE {
		bus.mapping[page] = append(bus.mapping[page], region)
	}
}

func (bus *SystemBus) inRange(addr uint32) bool {
	return uint64(addr)+WORD_SIZE <= uint64(len(bus.memory))
}

func (bus *SystemBus) Write32(addr uint32, value uint32) {
	/*
		Write32 stores value, invoking the onWrite callback first when addr
		falls in a mapped region. Out-of-range stores are dropped.
	*/

	if !bus.inRange(addr) {
		return
	}
	bus.mutex.Lock()
	regions := bus.mapping[addr&PAGE_MASK]
	binary.LittleEndian.PutUint32(bus.memory[addr:addr+WORD_SIZE], value)
	bus.mutex.Unlock()

	for _, region := range regions {
		if addr >= region.start && addr <= region.end && region.onWrite != nil {
			region.onWrite(addr, value)
			return
		}
	}
}

func (bus *SystemBus) Read32(addr uint32) uint32 {
	/*
		Read32 loads a word. Mapped regions with an onRead callback supply
		the value themselves.
	*/

	if !bus.inRange(addr) {
		return 0
	}
	bus.mutex.RLock()
	regions := bus.mapping[addr&PAGE_MASK]
	bus.mutex.RUnlock()

	for _, region := range regions {
		if addr >= region.start && addr <= region.end && region.onRead != nil {
			value := region.onRead(addr)
			bus.mutex.Lock()
			binary.LittleEndian.PutUint32(bus.memory[addr:addr+WORD_SIZE], value)
			bus.mutex.Unlock()
			return value
		}
	}

	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	return binary.LittleEndian.Uint32(bus.memory[addr : addr+WORD_SIZE])
}

// Peek32 reads the stored word without invoking callbacks.
func (bus *SystemBus) Peek32(addr uint32) uint32 {
	if !bus.inRange(addr) {
		return 0
	}
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	return binary.LittleEndian.Uint32(bus.memory[addr : addr+WORD_SIZE])
}

// Poke32 stores a word without invoking callbacks.
func (bus *SystemBus) Poke32(addr uint32, value uint32) {
	if !bus.inRange(addr) {
		return
	}
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	binary.LittleEndian.PutUint32(bus.memory[addr:addr+WORD_SIZE], value)
}

// VRAM returns the video memory part of the block. Callers that read it
// concurrently with writers hold RLockVRAM.
func (bus *SystemBus) VRAM() []byte {
	return bus.memory[:bus.mmioBase]
}

func (bus *SystemBus) RLockVRAM()   { bus.mutex.RLock() }
func (bus *SystemBus) RUnlockVRAM() { bus.mutex.RUnlock() }

func (bus *SystemBus) Reset() {
	/*
		Reset clears video memory and registers. Mappings are kept.
	*/

	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	for i := range bus.memory {
		bus.memory[i] = 0
	}
}

// BusDevice presents the register aperture and VRAM of a SystemBus as an
// OverlayDevice. Register offsets are relative to the aperture.
type BusDevice struct {
	bus *SystemBus
}

func NewBusDevice(bus *SystemBus) *BusDevice {
	return &BusDevice{bus: bus}
}

func (d *BusDevice) Read32(reg uint32) uint32 {
	return d.bus.Read32(d.bus.mmioBase + reg)
}

func (d *BusDevice) Write32(reg uint32, value uint32) {
	d.bus.Write32(d.bus.mmioBase+reg, value)
}

func (d *BusDevice) VRAM() []byte     { return d.bus.VRAM() }
func (d *BusDevice) VRAMBase() uint32 { return 0 }

func (d *BusDevice) String() string {
	return fmt.Sprintf("bus(vram=%dKiB mmio=0x%X)", d.bus.VRAMSize()/1024, d.bus.mmioBase)
}
