//go:build linux

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

func init() {
	compiledFeatures = append(compiledFeatures, "device:mmio")
}

// mmioDevice drives real hardware through the PCI resource files of the
// graphics function: resource0 is the VRAM aperture, resource1 the MMIO
// registers.
type mmioDevice struct {
	vramFile *os.File
	regsFile *os.File
	vram     []byte
	regs     []byte
	vramBase uint32
}

// OpenMMIODevice maps the BARs of the PCI device at addr (for example
// 0000:01:00.0). vramSize limits the VRAM mapping.
func OpenMMIODevice(addr string, vramSize int) (*mmioDevice, error) {
	dir := filepath.Join("/sys/bus/pci/devices", addr)
	d := &mmioDevice{}

	var err error
	if d.vramFile, err = os.OpenFile(filepath.Join(dir, "resource0"), os.O_RDWR|os.O_SYNC, 0); err != nil {
		return nil, fmt.Errorf("open vram bar: %w", err)
	}
	if d.regsFile, err = os.OpenFile(filepath.Join(dir, "resource1"), os.O_RDWR|os.O_SYNC, 0); err != nil {
		d.Close()
		return nil, fmt.Errorf("open mmio bar: %w", err)
	}
	if d.vram, err = unix.Mmap(int(d.vramFile.Fd()), 0, vramSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err != nil {
		d.Close()
		return nil, fmt.Errorf("mmap vram: %w", err)
	}
	if d.regs, err = unix.Mmap(int(d.regsFile.Fd()), 0, OVERLAY_MMIO_SIZE, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err != nil {
		d.Close()
		return nil, fmt.Errorf("mmap registers: %w", err)
	}
	return d, nil
}

func (d *mmioDevice) reg(off uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&d.regs[off&^3]))
}

func (d *mmioDevice) Read32(reg uint32) uint32 {
	if reg+4 > uint32(len(d.regs)) {
		return 0
	}
	return atomic.LoadUint32(d.reg(reg))
}

func (d *mmioDevice) Write32(reg uint32, value uint32) {
	if reg+4 > uint32(len(d.regs)) {
		return
	}
	atomic.StoreUint32(d.reg(reg), value)
}

func (d *mmioDevice) VRAM() []byte     { return d.vram }
func (d *mmioDevice) VRAMBase() uint32 { return d.vramBase }

func (d *mmioDevice) Close() error {
	if d.regs != nil {
		unix.Munmap(d.regs)
		d.regs = nil
	}
	if d.vram != nil {
		unix.Munmap(d.vram)
		d.vram = nil
	}
	if d.regsFile != nil {
		d.regsFile.Close()
	}
	if d.vramFile != nil {
		return d.vramFile.Close()
	}
	return nil
}
