package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	y4mMagic    = "YUV4MPEG2"
	y4mFrameTag = "FRAME"
)

// Y4MReader yields frames from a YUV4MPEG2 stream. 4:2:0 and mono streams
// come out as I420, 4:2:2 is repacked to YUY2.
type Y4MReader struct {
	rd         *bufio.Reader
	Width      int
	Height     int
	Colorspace string
	RateNum    int
	RateDen    int
	frameSize  int
	frames     int
}

// NewY4MReader reads and checks the stream header.
func NewY4MReader(r io.Reader) (*Y4MReader, error) {
	rd := bufio.NewReaderSize(r, 1<<16)
	line, err := rd.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("y4m: header: %w", err)
	}
	line = bytes.TrimSuffix(line, []byte{'\n'})
	if !bytes.HasPrefix(line, []byte(y4mMagic)) {
		return nil, errors.New("y4m: not a YUV4MPEG2 stream")
	}

	y := &Y4MReader{rd: rd, Colorspace: "420jpeg", RateNum: 25, RateDen: 1}
	for _, field := range strings.Fields(string(line[len(y4mMagic):])) {
		value := field[1:]
		switch field[0] {
		case 'W':
			y.Width, _ = strconv.Atoi(value)
		case 'H':
			y.Height, _ = strconv.Atoi(value)
		case 'C':
			y.Colorspace = value
		case 'F':
			if num, den, ok := strings.Cut(value, ":"); ok {
				y.RateNum, _ = strconv.Atoi(num)
				y.RateDen, _ = strconv.Atoi(den)
			}
		}
	}
	if y.Width <= 0 || y.Height <= 0 {
		return nil, fmt.Errorf("y4m: bad size %dx%d", y.Width, y.Height)
	}
	if y.frameSize = y4mFrameSize(y.Colorspace, y.Width, y.Height); y.frameSize == 0 {
		return nil, fmt.Errorf("y4m: colorspace %q: %w", y.Colorspace, ErrUnsupportedFormat)
	}
	return y, nil
}

func y4mFrameSize(colorspace string, w, h int) int {
	cw, ch := (w+1)/2, (h+1)/2
	switch {
	case colorspace == "mono":
		return w * h
	case strings.HasPrefix(colorspace, "420"):
		return w*h + 2*cw*ch
	case colorspace == "422":
		return w*h + 2*cw*h
	}
	return 0
}

// Format is the FourCC of the frames Next returns.
func (y *Y4MReader) Format() FourCC {
	if y.Colorspace == "422" {
		return FOURCC_YUY2
	}
	return FOURCC_I420
}

// Frames returns how many frames have been read so far.
func (y *Y4MReader) Frames() int {
	return y.frames
}

// Next returns the next frame, or io.EOF at the end of the stream.
func (y *Y4MReader) Next() (*Frame, error) {
	tag, err := y.rd.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(tag) == 0 {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("y4m: frame %d header: %w", y.frames, err)
	}
	if !bytes.HasPrefix(tag, []byte(y4mFrameTag)) {
		return nil, fmt.Errorf("y4m: frame %d: bad tag %q", y.frames, bytes.TrimSpace(tag))
	}
	raw := make([]byte, y.frameSize)
	if _, err := io.ReadFull(y.rd, raw); err != nil {
		return nil, fmt.Errorf("y4m: frame %d: %w", y.frames, err)
	}
	y.frames++

	w, h := y.Width, y.Height
	switch {
	case y.Colorspace == "mono":
		return monoToI420(raw, w, h), nil
	case y.Colorspace == "422":
		return planar422ToYUY2(raw, w, h), nil
	}
	return &Frame{Data: raw, Width: w, Height: h, Stride: w, Format: FOURCC_I420}, nil
}

func monoToI420(luma []byte, w, h int) *Frame {
	cSize := ((w + 1) / 2) * ((h + 1) / 2)
	data := make([]byte, w*h+2*cSize)
	copy(data, luma)
	for i := w * h; i < len(data); i++ {
		data[i] = 0x80
	}
	return &Frame{Data: data, Width: w, Height: h, Stride: w, Format: FOURCC_I420}
}

func planar422ToYUY2(raw []byte, w, h int) *Frame {
	cw := (w + 1) / 2
	yPlane := raw[:w*h]
	uPlane := raw[w*h : w*h+cw*h]
	vPlane := raw[w*h+cw*h:]
	stride := cw * 4
	out := make([]byte, stride*h)
	for row := 0; row < h; row++ {
		line := out[row*stride:]
		for x := 0; x < cw; x++ {
			y0 := yPlane[row*w+2*x]
			y1 := y0
			if 2*x+1 < w {
				y1 = yPlane[row*w+2*x+1]
			}
			line[4*x] = y0
			line[4*x+1] = uPlane[row*cw+x]
			line[4*x+2] = y1
			line[4*x+3] = vPlane[row*cw+x]
		}
	}
	return &Frame{Data: out, Width: w, Height: h, Stride: stride, Format: FOURCC_YUY2}
}
