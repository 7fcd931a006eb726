package main

import "fmt"

// Surface is one overlay source or HQV destination buffer in VRAM.
type Surface struct {
	Base   uint32 // device address of the first byte
	Offset int    // byte offset into VRAM
	Pitch  int
	Width  int
	Height int
	Format FourCC
	Alloc  Allocation
}

func (s *Surface) Size() int {
	return s.Format.FrameSize(s.Pitch, s.Height)
}

// planeOffsets returns the byte offsets of the Y, U and V planes relative to
// the surface start. YV12 stores V before U.
func (s *Surface) planeOffsets() (y, u, v int) {
	if !s.Format.IsPlanar() {
		return 0, 0, 0
	}
	ySize := s.Pitch * s.Height
	cSize := (s.Pitch / 2) * ((s.Height + 1) / 2)
	if s.Format == FOURCC_YV12 {
		return 0, ySize + cSize, ySize
	}
	return 0, ySize, ySize + cSize
}

// PlaneAddrs returns the device addresses of the Y, U and V planes. Packed
// surfaces return the base three times.
func (s *Surface) PlaneAddrs() (y, u, v uint32) {
	yo, uo, vo := s.planeOffsets()
	return s.Base + uint32(yo), s.Base + uint32(uo), s.Base + uint32(vo)
}

// SurfaceSet is the buffer chain of one stream: two or three source surfaces
// flipped front/back, plus HQV destination buffers when the HQV is in use.
type SurfaceSet struct {
	Stream   StreamID
	Format   FourCC
	Width    int
	Height   int
	Pitch    int
	Surfaces []*Surface
	Front    int
	HQV      []*Surface
	HQVPitch int
}

func (ss *SurfaceSet) FrontSurface() *Surface {
	return ss.Surfaces[ss.Front]
}

// BackSurface is the next surface to be written.
func (ss *SurfaceSet) BackSurface() *Surface {
	return ss.Surfaces[(ss.Front+1)%len(ss.Surfaces)]
}

// Swap makes the back surface the front one.
func (ss *SurfaceSet) Swap() {
	ss.Front = (ss.Front + 1) % len(ss.Surfaces)
}

func (ss *SurfaceSet) HQVAddrs() []uint32 {
	out := make([]uint32, len(ss.HQV))
	for i, s := range ss.HQV {
		out[i] = s.Base
	}
	return out
}

func (ss *SurfaceSet) matches(format FourCC, w, h int, hqv bool) bool {
	return ss.Format == format && ss.Width == w && ss.Height == h && (len(ss.HQV) > 0) == hqv
}

// ClearSurface fills s with the format's black: Y 0x00 with chroma 0x80 for
// YUV, zero for RGB.
func ClearSurface(vram []byte, s *Surface) {
	end := s.Offset + s.Size()
	if s.Offset < 0 || end > len(vram) {
		return
	}
	buf := vram[s.Offset:end]
	switch {
	case s.Format == FOURCC_YUY2:
		for i := 0; i+1 < len(buf); i += 2 {
			buf[i], buf[i+1] = 0x00, 0x80
		}
	case s.Format == FOURCC_UYVY:
		for i := 0; i+1 < len(buf); i += 2 {
			buf[i], buf[i+1] = 0x80, 0x00
		}
	case s.Format.IsPlanar():
		ySize := s.Pitch * s.Height
		clear(buf[:ySize])
		for i := ySize; i < len(buf); i++ {
			buf[i] = 0x80
		}
	default:
		clear(buf)
	}
}

// CopyFrame writes f into surface s. f must match the surface format; lines
// are clipped to the surface.
func CopyFrame(vram []byte, s *Surface, f *Frame) error {
	if f.Format != s.Format {
		return fmt.Errorf("copy %s frame into %s surface: %w", f.Format, s.Format, ErrUnsupportedFormat)
	}
	if s.Offset < 0 || s.Offset+s.Size() > len(vram) {
		return fmt.Errorf("surface at 0x%X outside vram", s.Offset)
	}
	w := min(f.Width, s.Width)
	h := min(f.Height, s.Height)
	lineBytes := w << s.Format.BytesPerPixelShift()

	copyPlane(vram[s.Offset:], s.Pitch, f.Data, f.Stride, lineBytes, h)
	if !s.Format.IsPlanar() {
		return nil
	}

	// Frames follow the same plane order as the surface.
	srcY := f.Stride * f.Height
	srcC := (f.Stride / 2) * ((f.Height + 1) / 2)
	_, uo, vo := s.planeOffsets()
	first, second := uo, vo
	if s.Format == FOURCC_YV12 {
		first, second = vo, uo
	}
	ch := (h + 1) / 2
	cw := (w + 1) / 2
	if len(f.Data) >= srcY+srcC {
		copyPlane(vram[s.Offset+first:], s.Pitch/2, f.Data[srcY:], f.Stride/2, cw, ch)
	}
	if len(f.Data) >= srcY+2*srcC {
		copyPlane(vram[s.Offset+second:], s.Pitch/2, f.Data[srcY+srcC:], f.Stride/2, cw, ch)
	}
	return nil
}

func copyPlane(dst []byte, dstPitch int, src []byte, srcPitch, lineBytes, lines int) {
	for y := 0; y < lines; y++ {
		so := y * srcPitch
		do := y * dstPitch
		if so+lineBytes > len(src) || do+lineBytes > len(dst) {
			return
		}
		copy(dst[do:do+lineBytes], src[so:so+lineBytes])
	}
}
