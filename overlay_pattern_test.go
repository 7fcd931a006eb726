package main

import (
	"bytes"
	"errors"
	"testing"
)

func TestGeneratePattern_Layouts(t *testing.T) {
	cases := []struct {
		format FourCC
		w, h   int
		stride int
		size   int
	}{
		{FOURCC_YUY2, 64, 8, 128, 128 * 8},
		{FOURCC_UYVY, 63, 8, 128, 128 * 8},
		{FOURCC_YV12, 64, 8, 64, 64*8 + 2*32*4},
		{FOURCC_I420, 63, 7, 64, 64*7 + 2*32*4},
		{FOURCC_RV15, 16, 4, 32, 32 * 4},
		{FOURCC_RV16, 16, 4, 32, 32 * 4},
		{FOURCC_RV32, 16, 4, 64, 64 * 4},
	}
	for _, c := range cases {
		f, err := GeneratePattern(c.format, c.w, c.h, 0)
		if err != nil {
			t.Fatalf("%s: %v", c.format, err)
		}
		if f.Stride != c.stride || len(f.Data) != c.size {
			t.Fatalf("%s %dx%d: stride %d size %d, want %d and %d",
				c.format, c.w, c.h, f.Stride, len(f.Data), c.stride, c.size)
		}
		if f.Format != c.format || f.Width != c.w || f.Height != c.h {
			t.Fatalf("%s: frame describes %s %dx%d", c.format, f.Format, f.Width, f.Height)
		}
	}
}

func TestGeneratePattern_Errors(t *testing.T) {
	if _, err := GeneratePattern(FOURCC_YUY2, 0, 8, 0); !errors.Is(err, ErrInvalidRect) {
		t.Fatalf("empty size: got %v", err)
	}
	if _, err := GeneratePattern(FourCC(0x34325241), 8, 8, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("unknown format: got %v", err)
	}
}

func TestGeneratePattern_MarkerMoves(t *testing.T) {
	a, _ := GeneratePattern(FOURCC_RV32, 64, 16, 0)
	b, _ := GeneratePattern(FOURCC_RV32, 64, 16, 1)
	top := 14 * a.Stride
	if !bytes.Equal(a.Data[:top], b.Data[:top]) {
		t.Fatal("bars changed between frames")
	}
	if bytes.Equal(a.Data[top:], b.Data[top:]) {
		t.Fatal("marker did not move")
	}
	// First bar is white, last is black.
	if a.Data[0] != 0xC0 || a.Data[2] != 0xC0 {
		t.Fatalf("first pixel % x", a.Data[:4])
	}
	if last := a.Data[63*4 : 64*4]; !bytes.Equal(last, []byte{0, 0, 0, 0}) {
		t.Fatalf("last pixel % x", last)
	}
}

func TestGeneratePattern_ChromaOrder(t *testing.T) {
	i420, _ := GeneratePattern(FOURCC_I420, 16, 16, 0)
	yv12, _ := GeneratePattern(FOURCC_YV12, 16, 16, 0)
	ySize := 16 * 16
	cSize := 8 * 8
	// Yellow bar at x=2..3: Cb low, Cr high.
	ci := 1
	if i420.Data[ySize+ci] != yv12.Data[ySize+cSize+ci] || i420.Data[ySize+cSize+ci] != yv12.Data[ySize+ci] {
		t.Fatal("YV12 chroma planes are not swapped relative to I420")
	}
	if i420.Data[ySize+ci] >= i420.Data[ySize+cSize+ci] {
		t.Fatal("I420 first chroma plane is not Cb")
	}
}
