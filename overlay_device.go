package main

// RegisterIO is 32-bit access to the overlay register aperture. Offsets are
// the register constants in overlay_constants.go.
type RegisterIO interface {
	Read32(reg uint32) uint32
	Write32(reg uint32, value uint32)
}

// OverlayDevice is a register aperture plus a CPU view of video memory.
// VRAMBase is the device address of VRAM()[0] as the scaler sees it.
type OverlayDevice interface {
	RegisterIO
	VRAM() []byte
	VRAMBase() uint32
}

// RegisterWrite is one deferred register store.
type RegisterWrite struct {
	Addr  uint32
	Value uint32
}
