//go:build linux

package main

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func init() {
	compiledFeatures = append(compiledFeatures, "alloc:drm-via")
}

const (
	drmIoctlViaAllocMem = 0xC0206440 // DRM_IOWR(0x40, drm_via_mem_t)
	drmIoctlViaFreeMem  = 0x40206441 // DRM_IOW(0x41, drm_via_mem_t)
	viaMemVideo         = 0
)

// drmViaMem mirrors drm_via_mem_t on 64-bit kernels.
type drmViaMem struct {
	Context uint32
	Type    uint32
	Size    uint32
	_       uint32
	Index   uint64
	Offset  uint64
}

// viaDRMManager allocates VRAM through the VIA DRM memory manager.
type viaDRMManager struct {
	file    *os.File
	context uint32
}

// OpenVIADRM opens the DRM node (for example /dev/dri/card0).
func OpenVIADRM(node string, context uint32) (*viaDRMManager, error) {
	f, err := os.OpenFile(node, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open drm node: %w", err)
	}
	return &viaDRMManager{file: f, context: context}, nil
}

func (m *viaDRMManager) Alloc(size int) (uint32, uint32, error) {
	req := drmViaMem{Context: m.context, Type: viaMemVideo, Size: uint32(size)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, m.file.Fd(), drmIoctlViaAllocMem, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return 0, 0, fmt.Errorf("DRM_VIA_ALLOCMEM: %v", errno)
	}
	return uint32(req.Offset), uint32(req.Index), nil
}

func (m *viaDRMManager) Free(handle uint32) error {
	req := drmViaMem{Context: m.context, Type: viaMemVideo, Index: uint64(handle)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, m.file.Fd(), drmIoctlViaFreeMem, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return fmt.Errorf("DRM_VIA_FREEMEM: %v", errno)
	}
	return nil
}

func (m *viaDRMManager) Close() error {
	return m.file.Close()
}
