package main

import (
	"fmt"
	"image"
)

// FourCC tags a source pixel layout.
type FourCC uint32

func (f FourCC) String() string {
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return fmt.Sprintf("0x%08X", uint32(f))
		}
	}
	return string(b)
}

// ParseFourCC accepts the four-character name ("YUY2", "I420", ...).
func ParseFourCC(s string) (FourCC, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("fourcc %q: %w", s, ErrUnsupportedFormat)
	}
	f := FourCC(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24)
	if !f.Supported() {
		return 0, fmt.Errorf("fourcc %q: %w", s, ErrUnsupportedFormat)
	}
	return f, nil
}

func (f FourCC) Supported() bool {
	switch f {
	case FOURCC_YUY2, FOURCC_UYVY, FOURCC_YV12, FOURCC_I420, FOURCC_RV15, FOURCC_RV16, FOURCC_RV32:
		return true
	}
	return false
}

func (f FourCC) IsPlanar() bool {
	return f == FOURCC_YV12 || f == FOURCC_I420
}

func (f FourCC) IsPacked() bool {
	return f == FOURCC_YUY2 || f == FOURCC_UYVY
}

func (f FourCC) IsRGB() bool {
	return f == FOURCC_RV15 || f == FOURCC_RV16 || f == FOURCC_RV32
}

func (f FourCC) IsYUV() bool {
	return f.IsPacked() || f.IsPlanar()
}

// BytesPerPixelShift is n in 2^n bytes per pixel of the first plane.
// Unknown formats are treated as 2 bytes per pixel.
func (f FourCC) BytesPerPixelShift() uint {
	switch f {
	case FOURCC_YV12, FOURCC_I420:
		return 0
	case FOURCC_RV32:
		return 2
	}
	return 1
}

// FrameSize returns the byte size of one w x h image with the given pitch.
func (f FourCC) FrameSize(pitch, height int) int {
	if f.IsPlanar() {
		return pitch*height + 2*(pitch/2)*((height+1)/2)
	}
	return pitch * height
}

// MinPitch returns the tightest pitch for width, aligned to the overlay
// fetch granule.
func (f FourCC) MinPitch(width int) int {
	return alignUp(width<<f.BytesPerPixelShift(), OVERLAY_FB_PITCH_A)
}

// controlBits maps the format to the pipeline control format field.
func (f FourCC) controlBits() uint32 {
	switch f {
	case FOURCC_YV12, FOURCC_I420:
		return VIDEO_FMT_YUV420
	case FOURCC_UYVY:
		return VIDEO_FMT_YUV422 | VIDEO_SWAP_UV
	case FOURCC_RV15:
		return VIDEO_FMT_RGB15
	case FOURCC_RV16:
		return VIDEO_FMT_RGB16
	case FOURCC_RV32:
		return VIDEO_FMT_RGB32
	}
	return VIDEO_FMT_YUV422
}

// Pipeline selects one of the two overlay scaling engines.
type Pipeline int

const (
	PIPE_PRIMARY Pipeline = iota
	PIPE_SECONDARY
)

func (p Pipeline) String() string {
	switch p {
	case PIPE_PRIMARY:
		return "primary"
	case PIPE_SECONDARY:
		return "secondary"
	}
	return fmt.Sprintf("pipeline(%d)", int(p))
}

func ParsePipeline(s string) (Pipeline, error) {
	switch s {
	case "primary", "v1":
		return PIPE_PRIMARY, nil
	case "secondary", "v3":
		return PIPE_SECONDARY, nil
	}
	return 0, fmt.Errorf("unknown pipeline %q", s)
}

func (p Pipeline) fireBit() uint32 {
	if p == PIPE_SECONDARY {
		return V3_COMMAND_FIRE
	}
	return V1_COMMAND_FIRE
}

func (p Pipeline) controlReg() uint32 {
	if p == PIPE_SECONDARY {
		return V3_CONTROL
	}
	return V1_CONTROL
}

func (p Pipeline) fifoReg() uint32 {
	if p == PIPE_SECONDARY {
		return V3_FIFO_CONTROL
	}
	return V1_FIFO_CONTROL
}

func (p Pipeline) prefifoReg() uint32 {
	if p == PIPE_SECONDARY {
		return V3_PREFIFO_CONTROL
	}
	return V1_PREFIFO_CONTROL
}

// DeinterlaceMode describes how interlaced sources are presented.
type DeinterlaceMode int

const (
	DEINTERLACE_NONE DeinterlaceMode = iota
	DEINTERLACE_BOB
	DEINTERLACE_WEAVE
)

// UpdateFlags accompany an UpdateOverlay request.
type UpdateFlags uint32

const (
	FLAG_SHOW UpdateFlags = 1 << iota
	FLAG_HIDE
	FLAG_INTERLEAVED
	FLAG_BOB
)

func (f UpdateFlags) deinterlace() DeinterlaceMode {
	switch {
	case f&FLAG_BOB != 0:
		return DEINTERLACE_BOB
	case f&FLAG_INTERLEAVED != 0:
		return DEINTERLACE_WEAVE
	}
	return DEINTERLACE_NONE
}

// ScreenInfo is the scan-out geometry provided by mode-setting.
type ScreenInfo struct {
	Width          int
	Height         int
	Depth          int // 8, 15, 16, 24 or 32
	PanX, PanY     int
	PanelExpansion bool
}

// Viewport is the visible part of the virtual screen.
func (s ScreenInfo) Viewport() image.Rectangle {
	return image.Rect(s.PanX, s.PanY, s.PanX+s.Width, s.PanY+s.Height)
}

// ColorKey selects how the overlay shows through the framebuffer.
type ColorKey struct {
	Enabled       bool
	Key           uint32 // framebuffer value at screen depth
	ChromaEnabled bool
	ChromaLow     uint32 // source value; RV15/RV16 given at native depth
	ChromaHigh    uint32
}

// Frame is a decoded picture owned by the caller.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Stride int // bytes per line of the first plane
	Format FourCC
}

func alignUp(v, a int) int {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}
