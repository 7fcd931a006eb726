// overlay_scanout.go - Emulated Overlay Scan-out

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

package main

import (
	"encoding/binary"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// renderLocked composes the framebuffer and both pipelines from the latched
// registers into c.frame. The chip mutex is held.
func (c *OverlayChip) renderLocked() {
	scr := c.cfg.Screen
	w, h := scr.Width, scr.Height
	if len(c.frame) != w*h*4 {
		c.frame = make([]byte, w*h*4)
	}
	dst := &image.RGBA{Pix: c.frame, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}

	c.bus.RLockVRAM()
	defer c.bus.RUnlockVRAM()
	vram := c.bus.VRAM()

	raw := c.decodeFramebuffer(vram, dst)

	order := [2]Pipeline{PIPE_SECONDARY, PIPE_PRIMARY}
	if c.active(V_COMPOSE_MODE)&COMPOSE_V3_TOP != 0 {
		order = [2]Pipeline{PIPE_PRIMARY, PIPE_SECONDARY}
	}
	for _, pipe := range order {
		c.composePipeline(pipe, vram, dst, raw)
	}
}

func fbBytesPerPixel(depth int) int {
	switch depth {
	case 8:
		return 1
	case 15, 16:
		return 2
	}
	return 4
}

// decodeFramebuffer converts the visible framebuffer into dst and returns
// the raw pixel values for colour-key comparison.
func (c *OverlayChip) decodeFramebuffer(vram []byte, dst *image.RGBA) []uint32 {
	scr := c.cfg.Screen
	w, h := scr.Width, scr.Height
	bpp := fbBytesPerPixel(scr.Depth)
	pitch := c.cfg.FBPitch
	if pitch == 0 {
		pitch = w * bpp
	}
	base := int(c.active(V_FB_STARTADDR))
	if base == 0 {
		base = int(c.cfg.FBOffset)
	}
	base += scr.PanY*pitch + scr.PanX*bpp

	raw := make([]uint32, w*h)
	for y := 0; y < h; y++ {
		line := base + y*pitch
		for x := 0; x < w; x++ {
			off := line + x*bpp
			if off < 0 || off+bpp > len(vram) {
				continue
			}
			var v uint32
			var r, g, b uint8
			switch bpp {
			case 1:
				v = uint32(vram[off])
				r, g, b = uint8(v), uint8(v), uint8(v)
			case 2:
				v = uint32(binary.LittleEndian.Uint16(vram[off:]))
				if scr.Depth == 15 {
					r, g, b = expand5(v>>10), expand5(v>>5), expand5(v)
				} else {
					r, g, b = expand5(v>>11), expand6(v>>5), expand5(v)
				}
			default:
				v = binary.LittleEndian.Uint32(vram[off:]) & 0xFFFFFF
				r, g, b = uint8(v>>16), uint8(v>>8), uint8(v)
			}
			raw[y*w+x] = v
			i := y*dst.Stride + x*4
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = r, g, b, 0xFF
		}
	}
	return raw
}

func expand5(v uint32) uint8 {
	v &= 0x1F
	return uint8(v<<3 | v>>2)
}

func expand6(v uint32) uint8 {
	v &= 0x3F
	return uint8(v<<2 | v>>4)
}

func decodeWindow(start, end uint32) image.Rectangle {
	return image.Rect(
		int(start&0x7FF), int(start>>16&0x7FF),
		int(end&0x7FF)+1, int(end>>16&0x7FF)+1,
	)
}

// composePipeline scales the pipeline source into its window and
// substitutes it for the framebuffer where the select bits allow.
func (c *OverlayChip) composePipeline(pipe Pipeline, vram []byte, dst *image.RGBA, raw []uint32) {
	r := pipe.regs()
	ctl := c.active(r.control)
	if ctl&VIDEO_ENABLE == 0 {
		return
	}
	win := decodeWindow(c.active(r.winStart), c.active(r.winEnd))
	vis := win.Intersect(dst.Rect)
	if vis.Empty() {
		return
	}

	var src image.Image
	var interp draw.Interpolator = draw.BiLinear
	if ctl&VIDEO_SWAP_HW_HQV != 0 {
		src = c.hqvSource(vram)
		interp = draw.CatmullRom
	} else {
		src = c.pipelineSource(r, ctl, vram)
	}
	if src == nil {
		return
	}

	scaled := image.NewRGBA(image.Rect(0, 0, win.Dx(), win.Dy()))
	interp.Scale(scaled, scaled.Rect, src, src.Bounds(), draw.Src, nil)

	compose := c.active(V_COMPOSE_MODE)
	var always, useKey, useChroma bool
	keyReg := uint32(V_COLOR_KEY)
	if pipe == PIPE_SECONDARY {
		always = compose&ALWAYS_SELECT_VIDEO3 != 0
		useKey = compose&SELECT_VIDEO3_IF_COLOR_KEY != 0
		useChroma = compose&SELECT_VIDEO3_IF_CHROMA_KEY != 0
		if c.cfg.TwoColorKeys {
			keyReg = V3_COLOR_KEY
		}
	} else {
		always = compose&ALWAYS_SELECT_VIDEO != 0
		useKey = compose&SELECT_VIDEO_IF_COLOR_KEY != 0
		useChroma = compose&SELECT_VIDEO_IF_CHROMA_KEY != 0
	}
	key := c.active(keyReg) & colorKeyMask(c.cfg.Screen.Depth)
	low := c.active(V_CHROMAKEY_LOW)
	high := c.active(V_CHROMAKEY_HIGH)
	if (low&V_CHROMAKEY_V3 != 0) != (pipe == PIPE_SECONDARY) {
		useChroma = false
	}

	w := dst.Rect.Dx()
	for y := vis.Min.Y; y < vis.Max.Y; y++ {
		for x := vis.Min.X; x < vis.Max.X; x++ {
			si := (y-win.Min.Y)*scaled.Stride + (x-win.Min.X)*4
			px := scaled.Pix[si : si+4 : si+4]
			show := always
			if useKey {
				show = raw[y*w+x] == key
			}
			if useChroma && inChromaRange(px, low, high) {
				show = false
			} else if useChroma && !useKey {
				show = true
			}
			if !show {
				continue
			}
			di := y*dst.Stride + x*4
			copy(dst.Pix[di:di+4], px)
			dst.Pix[di+3] = 0xFF
		}
	}
}

func inChromaRange(px []byte, low, high uint32) bool {
	for i, shift := range [3]uint{16, 8, 0} {
		lo := uint8(low >> shift)
		hi := uint8(high >> shift)
		if px[i] < lo || px[i] > hi {
			return false
		}
	}
	return true
}

// pipelineSource reads the pipeline's own source surface.
func (c *OverlayChip) pipelineSource(r pipeRegs, ctl uint32, vram []byte) image.Image {
	size := c.active(r.srcSize)
	w := int(size&0x7FF) + 1
	h := int(size>>16&0x7FF) + 1
	stride := c.active(r.stride)
	yStride := int(stride & 0xFFFF)
	cStride := int(stride >> 16)
	start := int(c.active(r.start[0]))

	switch ctl & VIDEO_FORMAT_MASK {
	case VIDEO_FMT_YUV420:
		return planarImage(vram, start, int(c.active(r.cb)), int(c.active(r.cr)), yStride, cStride, w, h)
	case VIDEO_FMT_YUV422:
		return packedYUVImage(vram, start, yStride, w, h, ctl&VIDEO_SWAP_UV != 0)
	case VIDEO_FMT_RGB15:
		return rgbImage(vram, start, yStride, w, h, 15)
	case VIDEO_FMT_RGB16:
		return rgbImage(vram, start, yStride, w, h, 16)
	case VIDEO_FMT_RGB32:
		return rgbImage(vram, start, yStride, w, h, 32)
	}
	return nil
}

// hqvSource reads the HQV input. The HQV scaling itself is folded into the
// final scale to the window.
func (c *OverlayChip) hqvSource(vram []byte) image.Image {
	ctl := c.active(HQV_CONTROL)
	if ctl&HQV_ENABLE == 0 {
		return nil
	}
	fl := c.active(HQV_SRC_FETCH_LINE)
	h := int(fl&0x7FF) + 1
	bytes := int(fl>>16&0x7FF) + 1
	if !c.cfg.HQVByteFetch {
		bytes *= 8
	}
	stride := c.active(HQV_SRC_STRIDE)
	yStride := int(stride & 0xFFFF)
	cStride := int(stride >> 16)
	y := int(c.active(HQV_SRC_STARTADDR_Y))

	if ctl&HQV_SRC_FMT_MASK == HQV_YUV420 {
		w := min(bytes, yStride)
		return planarImage(vram, y, int(c.active(HQV_SRC_STARTADDR_U)), int(c.active(HQV_SRC_STARTADDR_V)), yStride, cStride, w, h)
	}
	w := min(bytes, yStride) / 2
	return packedYUVImage(vram, y, yStride, w, h, ctl&HQV_UYVY_ORDER != 0)
}

func planarImage(vram []byte, y, u, v, yStride, cStride, w, h int) image.Image {
	ch := (h + 1) / 2
	if w <= 0 || h <= 0 || yStride < w || cStride < (w+1)/2 {
		return nil
	}
	ySize := yStride * h
	cSize := cStride * ch
	if y < 0 || u < 0 || v < 0 || y+ySize > len(vram) || u+cSize > len(vram) || v+cSize > len(vram) {
		return nil
	}
	return &image.YCbCr{
		Y:              vram[y : y+ySize],
		Cb:             vram[u : u+cSize],
		Cr:             vram[v : v+cSize],
		YStride:        yStride,
		CStride:        cStride,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}
}

func packedYUVImage(vram []byte, start, stride, w, h int, uyvy bool) image.Image {
	if w <= 0 || h <= 0 || start < 0 || start+stride*(h-1)+w*2 > len(vram) {
		return nil
	}
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio422)
	for row := 0; row < h; row++ {
		line := vram[start+row*stride:]
		for x := 0; x < w; x += 2 {
			i := x * 2
			if i+3 >= len(line) {
				break
			}
			y0, u, y1, v := line[i], line[i+1], line[i+2], line[i+3]
			if uyvy {
				u, y0, v, y1 = line[i], line[i+1], line[i+2], line[i+3]
			}
			img.Y[row*img.YStride+x] = y0
			if x+1 < w {
				img.Y[row*img.YStride+x+1] = y1
			}
			ci := row*img.CStride + x/2
			img.Cb[ci] = u
			img.Cr[ci] = v
		}
	}
	return img
}

func rgbImage(vram []byte, start, stride, w, h, depth int) image.Image {
	bpp := fbBytesPerPixel(depth)
	if w <= 0 || h <= 0 || start < 0 || start+stride*(h-1)+w*bpp > len(vram) {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := start + y*stride + x*bpp
			var px color.RGBA
			switch depth {
			case 15:
				v := uint32(binary.LittleEndian.Uint16(vram[off:]))
				px = color.RGBA{expand5(v >> 10), expand5(v >> 5), expand5(v), 0xFF}
			case 16:
				v := uint32(binary.LittleEndian.Uint16(vram[off:]))
				px = color.RGBA{expand5(v >> 11), expand6(v >> 5), expand5(v), 0xFF}
			default:
				v := binary.LittleEndian.Uint32(vram[off:])
				px = color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xFF}
			}
			img.SetRGBA(x, y, px)
		}
	}
	return img
}
