//go:build !linux

package main

import "errors"

var errNoLinux = errors.New("hardware backends need linux")

type viaDRMManager struct{}

func OpenVIADRM(node string, context uint32) (*viaDRMManager, error) {
	return nil, errNoLinux
}

func (m *viaDRMManager) Alloc(size int) (uint32, uint32, error) { return 0, 0, errNoLinux }
func (m *viaDRMManager) Free(handle uint32) error             { return errNoLinux }
func (m *viaDRMManager) Close() error                         { return nil }

type mmioDevice struct{}

func OpenMMIODevice(addr string, vramSize int) (*mmioDevice, error) {
	return nil, errNoLinux
}

func (d *mmioDevice) Read32(reg uint32) uint32         { return 0 }
func (d *mmioDevice) Write32(reg uint32, value uint32) {}
func (d *mmioDevice) VRAM() []byte                     { return nil }
func (d *mmioDevice) VRAMBase() uint32                 { return 0 }
func (d *mmioDevice) Close() error                     { return nil }
