package main

import (
	"encoding/binary"
	"image/color"
)

// Colour bars, left to right.
var patternBars = [8]color.RGBA{
	{0xC0, 0xC0, 0xC0, 0xFF}, // white
	{0xC0, 0xC0, 0x00, 0xFF}, // yellow
	{0x00, 0xC0, 0xC0, 0xFF}, // cyan
	{0x00, 0xC0, 0x00, 0xFF}, // green
	{0xC0, 0x00, 0xC0, 0xFF}, // magenta
	{0xC0, 0x00, 0x00, 0xFF}, // red
	{0x00, 0x00, 0xC0, 0xFF}, // blue
	{0x00, 0x00, 0x00, 0xFF}, // black
}

// patternPixel is the colour at (x, y) of frame n: bars with a white
// marker that moves one step right per frame along the bottom eighth.
func patternPixel(x, y, w, h, n int) color.RGBA {
	if y >= h-h/8 {
		marker := w / 16
		if marker < 1 {
			marker = 1
		}
		pos := (n * 4) % w
		if x >= pos && x < pos+marker {
			return color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
		}
		return color.RGBA{0x10, 0x10, 0x10, 0xFF}
	}
	return patternBars[x*len(patternBars)/w]
}

func patternYCbCr(x, y, w, h, n int) (uint8, uint8, uint8) {
	c := patternPixel(x, y, w, h, n)
	return color.RGBToYCbCr(c.R, c.G, c.B)
}

// GeneratePattern renders frame n of a colour-bar pattern in format at w x h.
// Pitches are tight except that planar widths round up to even.
func GeneratePattern(format FourCC, w, h, n int) (*Frame, error) {
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidRect
	}
	switch {
	case format.IsPlanar():
		return planarPattern(format, w, h, n), nil
	case format == FOURCC_YUY2 || format == FOURCC_UYVY:
		return packedPattern(format, w, h, n), nil
	case format.IsRGB():
		return rgbPattern(format, w, h, n), nil
	}
	return nil, ErrUnsupportedFormat
}

func planarPattern(format FourCC, w, h, n int) *Frame {
	stride := alignUp(w, 2)
	cw, ch := stride/2, (h+1)/2
	ySize := stride * h
	cSize := cw * ch
	data := make([]byte, ySize+2*cSize)
	first, second := data[ySize:ySize+cSize], data[ySize+cSize:]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			yy, cb, cr := patternYCbCr(x, y, w, h, n)
			data[y*stride+x] = yy
			if x%2 == 0 && y%2 == 0 {
				ci := (y/2)*cw + x/2
				if format == FOURCC_YV12 {
					first[ci], second[ci] = cr, cb
				} else {
					first[ci], second[ci] = cb, cr
				}
			}
		}
	}
	return &Frame{Data: data, Width: w, Height: h, Stride: stride, Format: format}
}

func packedPattern(format FourCC, w, h, n int) *Frame {
	stride := alignUp(w, 2) * 2
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		line := data[y*stride:]
		for x := 0; x < w; x += 2 {
			y0, cb, cr := patternYCbCr(x, y, w, h, n)
			y1 := y0
			if x+1 < w {
				y1, _, _ = patternYCbCr(x+1, y, w, h, n)
			}
			i := x * 2
			if format == FOURCC_UYVY {
				line[i], line[i+1], line[i+2], line[i+3] = cb, y0, cr, y1
			} else {
				line[i], line[i+1], line[i+2], line[i+3] = y0, cb, y1, cr
			}
		}
	}
	return &Frame{Data: data, Width: w, Height: h, Stride: stride, Format: format}
}

func rgbPattern(format FourCC, w, h, n int) *Frame {
	bpp := 1 << format.BytesPerPixelShift()
	stride := w * bpp
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := patternPixel(x, y, w, h, n)
			off := y*stride + x*bpp
			switch format {
			case FOURCC_RV15:
				v := uint16(c.R>>3)<<10 | uint16(c.G>>3)<<5 | uint16(c.B>>3)
				binary.LittleEndian.PutUint16(data[off:], v)
			case FOURCC_RV16:
				v := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
				binary.LittleEndian.PutUint16(data[off:], v)
			default:
				binary.LittleEndian.PutUint32(data[off:], uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B))
			}
		}
	}
	return &Frame{Data: data, Width: w, Height: h, Stride: stride, Format: format}
}
