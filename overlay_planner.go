// overlay_planner.go - Overlay Register Planner

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

/*
overlay_planner.go - Format & Scaling Planner

PlanUpdate turns one overlay request (source and destination rectangles,
format, path, colour keys) into the complete register image of a pipeline.
It never touches hardware: the result is handed to the flip controller,
which queues PlannedRegisters.Writes() and fires them at the next flip.

Register write order is fixed:

	HQV block, window, start addresses, stride, fetch, zoom, mini,
	FIFO + pre-threshold, source size, colour key, chroma key, control

The compose-mode write carrying the fire bit belongs to the flip controller.
*/

package main

import (
	"fmt"
	"image"
)

// PlanRequest is everything the planner needs for one update. Dst is
// already viewport-relative and clipped by the caller.
type PlanRequest struct {
	Src image.Rectangle
	Dst image.Rectangle

	Format     FourCC
	OrigWidth  int
	OrigHeight int
	OrigPitch  int

	Deinterlace DeinterlaceMode
	Pipeline    Pipeline
	UseHQV      bool

	// Plane addresses of the front source surface (U and V unused for
	// packed formats).
	SrcY, SrcU, SrcV uint32

	// HQV destination buffers and their pitch, used when UseHQV is set.
	HQVDst   []uint32
	HQVPitch int

	ColorKey ColorKey
	Screen   ScreenInfo
	Rev      RevisionProfile
}

// PlannedRegisters is the register image of one pipeline update.
type PlannedRegisters struct {
	Pipeline    Pipeline
	Format      FourCC
	Zoom        ZoomParameters
	FIFO        FIFOConfig
	Fetch       fetchPlan
	HQV         bool
	Passthrough bool // unsupported format shown unscaled as 2-byte packed
	UVOffset    uint32
	SrcOffsetY  uint32 // source origin within the Y or packed plane

	WinStart   uint32
	WinEnd     uint32
	StartAddr  [3]uint32 // STARTADDR_0..2
	StartCb    uint32
	StartCr    uint32
	Stride     uint32
	FetchCount uint32
	ZoomCtl    uint32
	MiniCtl    uint32
	FIFOCtl    uint32
	PreFIFO    uint32
	SourceSize uint32
	Control    uint32

	HQVControl   uint32
	HQVSrc       [3]uint32 // Y, U, V
	HQVFetchLine uint32
	HQVFilter    uint32
	HQVMinify    uint32
	HQVDst       []uint32
	HQVDstStride uint32
	HQVSrcStride uint32

	KeyWrites   []RegisterWrite
	ComposeBits uint32 // V_COMPOSE_MODE select bits, applied at fire time
}

type pipeRegs struct {
	control, fetch, stride, winStart, winEnd, zoom, mini, srcSize uint32
	start                                                         [3]uint32
	cb, cr                                                        uint32
}

var (
	v1Regs = pipeRegs{
		control: V1_CONTROL, fetch: V1_FETCH_COUNT, stride: V1_STRIDE,
		winStart: V1_WIN_START_Y_X, winEnd: V1_WIN_END_Y_X,
		zoom: V1_ZOOM_CONTROL, mini: V1_MINI_CONTROL, srcSize: V1_SOURCE_SIZE,
		start: [3]uint32{V1_STARTADDR_0, V1_STARTADDR_1, V1_STARTADDR_2},
		cb:    V1_STARTADDR_CB0, cr: V1_STARTADDR_CR0,
	}
	v3Regs = pipeRegs{
		control: V3_CONTROL, fetch: V3_FETCH_COUNT, stride: V3_STRIDE,
		winStart: V3_WIN_START_Y_X, winEnd: V3_WIN_END_Y_X,
		zoom: V3_ZOOM_CONTROL, mini: V3_MINI_CONTROL, srcSize: V3_SOURCE_SIZE,
		start: [3]uint32{V3_STARTADDR_0, V3_STARTADDR_1, V3_STARTADDR_2},
		cb:    V3_STARTADDR_CB0, cr: V3_STARTADDR_CR0,
	}
)

func (p Pipeline) regs() pipeRegs {
	if p == PIPE_SECONDARY {
		return v3Regs
	}
	return v1Regs
}

// PlanUpdate computes the register image for req. ErrTooSmall is returned
// together with the plan so callers can inspect it before hiding.
func PlanUpdate(req PlanRequest) (PlannedRegisters, error) {
	if req.Rev == nil {
		return PlannedRegisters{}, fmt.Errorf("plan: no revision profile")
	}
	if req.Src.Empty() || req.Dst.Empty() {
		return PlannedRegisters{}, fmt.Errorf("plan src %v dst %v: %w", req.Src, req.Dst, ErrInvalidRect)
	}
	if !req.Src.In(image.Rect(0, 0, req.OrigWidth, req.OrigHeight)) {
		return PlannedRegisters{}, fmt.Errorf("plan src %v outside %dx%d: %w",
			req.Src, req.OrigWidth, req.OrigHeight, ErrInvalidRect)
	}

	p := PlannedRegisters{Pipeline: req.Pipeline, Format: req.Format}
	if !req.Format.Supported() {
		planPassthrough(&p, req)
		return p, nil
	}

	hqv := req.UseHQV && req.Rev.HasHQV() && req.Format.IsYUV() && len(req.HQVDst) > 0
	p.HQV = hqv

	srcW, srcH := req.Src.Dx(), req.Src.Dy()
	dstW, dstH := req.Dst.Dx(), req.Dst.Dy()
	if (req.Deinterlace == DEINTERLACE_BOB && !hqv) || req.Deinterlace == DEINTERLACE_WEAVE {
		srcH /= 2
		if srcH < 1 {
			srcH = 1
		}
	}

	p.Zoom = CalculateZoom(srcW, srcH, dstW, dstH, req.Screen.PanelExpansion)
	ratio := hqv && req.Rev.NewScaleControl()
	shift := req.Format.BytesPerPixelShift()

	// Size the pipeline actually reads on each axis.
	pipeW, pipeH := srcW, srcH
	if hqv {
		pipeW = hqvOutput(p.Zoom.H, srcW, dstW, ratio)
		pipeH = hqvOutput(p.Zoom.V, srcH, dstH, ratio)
	}

	planSourceAddresses(&p, req, hqv)

	switch {
	case hqv:
		p.Fetch = fetchPlan{
			FetchY:  packedFetch(req.Rev, pipeW, dstW, 1, 0),
			StrideY: req.HQVPitch,
		}
	case req.Format.IsPlanar():
		p.Fetch = planarFetch(req.Rev, srcW, req.OrigPitch, p.Zoom.H.Alignment)
	default:
		p.Fetch = fetchPlan{
			FetchY:  packedFetch(req.Rev, srcW, dstW, shift, p.Zoom.H.Alignment),
			StrideY: req.OrigPitch,
		}
	}
	p.Stride = p.Fetch.strideRegister()
	p.FetchCount = p.Fetch.fetchRegister()

	p.ZoomCtl = p.Zoom.zoomControl(ratio)
	p.MiniCtl = p.Zoom.miniControl(!hqv)

	p.FIFO = SelectFIFO(req.Rev, req.Pipeline, req.Format, srcW, hqv)
	p.FIFOCtl, p.PreFIFO = fifoRegisters(req.Pipeline, p.FIFO)

	p.WinStart, p.WinEnd = windowRegisters(req.Dst)
	p.SourceSize = uint32((pipeH-1)&0x7FF)<<16 | uint32((pipeW-1)&0x7FF)

	p.KeyWrites, p.ComposeBits = colorKeyWrites(req.Rev, req.Pipeline, req.Format, req.Screen.Depth, req.ColorKey)
	if req.ColorKey.ChromaEnabled {
		// Interpolation corrupts chroma-keyed edges on this family.
		p.MiniCtl &^= MINI_INTERP_MASK
	}

	p.Control = VIDEO_ENABLE
	if hqv {
		p.Control |= VIDEO_FMT_YUV422 | VIDEO_SWAP_HW_HQV
		if req.Rev.TripleBuffer() && len(req.HQVDst) >= 3 {
			p.Control |= VIDEO_TRIPLE_BUFFER
		}
		planHQV(&p, req, srcW, srcH, shift, ratio)
	} else {
		p.Control |= req.Format.controlBits()
		switch req.Deinterlace {
		case DEINTERLACE_BOB:
			p.Control |= VIDEO_BOB_ENABLE
		case DEINTERLACE_WEAVE:
			p.Control |= VIDEO_INTERLEAVE
		}
	}
	if p.FIFO.Depth > 32 {
		p.Control |= VIDEO_FIFO_EXTENDED
	}

	if p.Zoom.TooSmall() {
		return p, fmt.Errorf("plan %dx%d -> %dx%d: %w", srcW, srcH, dstW, dstH, ErrTooSmall)
	}
	return p, nil
}

// hqvOutput is the size the HQV hands to the pipeline on one axis. With
// ratio minification it scales straight to the destination; otherwise it
// only applies the power-of-two divider.
func hqvOutput(z AxisZoom, src, dst int, ratio bool) int {
	if z.Mode != ZOOM_MINIFY {
		return src
	}
	if ratio {
		return dst
	}
	out := src / z.Divisor
	if out < 1 {
		out = 1
	}
	return out
}

// planSourceAddresses applies the source rectangle origin to the plane
// addresses. YUV origins are kept on even pixels so chroma stays paired.
func planSourceAddresses(p *PlannedRegisters, req PlanRequest, hqv bool) {
	left, top := req.Src.Min.X, req.Src.Min.Y
	if req.Format.IsYUV() {
		left &^= 1
	}
	var y, u, v uint32
	if req.Format.IsPlanar() {
		top &^= 1
		p.SrcOffsetY = uint32(top*req.OrigPitch + left)
		y = req.SrcY + p.SrcOffsetY
		p.UVOffset = uint32((top/2)*(req.OrigPitch/2) + left/2)
		u = req.SrcU + p.UVOffset
		v = req.SrcV + p.UVOffset
	} else {
		p.SrcOffsetY = uint32(top*req.OrigPitch + left<<req.Format.BytesPerPixelShift())
		y = req.SrcY + p.SrcOffsetY
	}

	if hqv {
		p.HQVSrc = [3]uint32{y, u, v}
		p.HQVDst = append([]uint32(nil), req.HQVDst...)
		for i := 0; i < len(p.HQVDst) && i < 3; i++ {
			p.StartAddr[i] = p.HQVDst[i]
		}
		return
	}
	p.StartAddr[0] = y
	if req.Format.IsPlanar() {
		p.StartCb = u
		p.StartCr = v
	}
}

func windowRegisters(dst image.Rectangle) (start, end uint32) {
	start = uint32(dst.Min.Y&0x7FF)<<16 | uint32(dst.Min.X&0x7FF)
	end = uint32((dst.Max.Y-1)&0x7FF)<<16 | uint32((dst.Max.X-1)&0x7FF)
	return start, end
}

func planHQV(p *PlannedRegisters, req PlanRequest, srcW, srcH int, shift uint, ratio bool) {
	ctl := uint32(HQV_ENABLE)
	if req.Format.IsPlanar() {
		ctl |= HQV_YUV420
	} else {
		ctl |= HQV_YUV422
		if req.Format == FOURCC_UYVY {
			ctl |= HQV_UYVY_ORDER
		}
	}
	if req.Rev.TripleBuffer() && len(req.HQVDst) >= 3 {
		ctl |= HQV_TRIPLE_BUFFER
	}
	if req.Deinterlace == DEINTERLACE_BOB {
		ctl |= HQV_DEINTERLACE | HQV_FIELD_2_FRAME
	}
	p.HQVControl = ctl
	p.HQVFetchLine = hqvFetchLine(req.Rev, srcW, srcH, shift)
	p.HQVFilter = p.Zoom.hqvFilter()
	p.HQVMinify = p.Zoom.hqvMinify(ratio)
	p.HQVDstStride = uint32(req.HQVPitch & 0xFFFF)

	src := fetchPlan{StrideY: req.OrigPitch}
	if req.Format.IsPlanar() {
		src.StrideUV = req.OrigPitch / 2
	}
	p.HQVSrcStride = src.strideRegister()
}

// planPassthrough shows an unknown format as 2-byte packed data at 1:1.
func planPassthrough(p *PlannedRegisters, req PlanRequest) {
	p.Passthrough = true
	w := min(req.Src.Dx(), req.Dst.Dx())
	h := min(req.Src.Dy(), req.Dst.Dy())
	dst := image.Rectangle{Min: req.Dst.Min, Max: req.Dst.Min.Add(image.Pt(w, h))}

	p.Zoom = ZoomParameters{
		H: AxisZoom{Mode: ZOOM_NONE, Divisor: 1, Taps: TAPS_4},
		V: AxisZoom{Mode: ZOOM_NONE, Divisor: 1, Taps: TAPS_4},
	}
	p.StartAddr[0] = req.SrcY + uint32(req.Src.Min.Y*req.OrigPitch+req.Src.Min.X<<1)
	p.Fetch = fetchPlan{FetchY: packedFetch(req.Rev, w, w, 1, 0), StrideY: req.OrigPitch}
	p.Stride = p.Fetch.strideRegister()
	p.FetchCount = p.Fetch.fetchRegister()
	p.FIFO = SelectFIFO(req.Rev, req.Pipeline, FOURCC_YUY2, w, false)
	p.FIFOCtl, p.PreFIFO = fifoRegisters(req.Pipeline, p.FIFO)
	p.WinStart, p.WinEnd = windowRegisters(dst)
	p.SourceSize = uint32((h-1)&0x7FF)<<16 | uint32((w-1)&0x7FF)
	p.KeyWrites, p.ComposeBits = colorKeyWrites(req.Rev, req.Pipeline, FOURCC_YUY2, req.Screen.Depth, req.ColorKey)
	p.Control = VIDEO_ENABLE | VIDEO_FMT_YUV422
}

// Writes returns the planned register stores in programming order.
func (p PlannedRegisters) Writes() []RegisterWrite {
	r := p.Pipeline.regs()
	w := make([]RegisterWrite, 0, 32)

	if p.HQV {
		w = append(w,
			RegisterWrite{HQV_SRC_STARTADDR_Y, p.HQVSrc[0]},
			RegisterWrite{HQV_SRC_STARTADDR_U, p.HQVSrc[1]},
			RegisterWrite{HQV_SRC_STARTADDR_V, p.HQVSrc[2]},
			RegisterWrite{HQV_SRC_FETCH_LINE, p.HQVFetchLine},
			RegisterWrite{HQV_FILTER_CONTROL, p.HQVFilter},
			RegisterWrite{HQV_MINIFY_CONTROL, p.HQVMinify},
			RegisterWrite{HQV_SRC_STRIDE, p.HQVSrcStride},
			RegisterWrite{HQV_DST_STRIDE, p.HQVDstStride},
		)
		dstRegs := [3]uint32{HQV_DST_STARTADDR0, HQV_DST_STARTADDR1, HQV_DST_STARTADDR2}
		for i := 0; i < len(p.HQVDst) && i < 3; i++ {
			w = append(w, RegisterWrite{dstRegs[i], p.HQVDst[i]})
		}
		w = append(w, RegisterWrite{HQV_CONTROL, p.HQVControl})
	}

	w = append(w,
		RegisterWrite{r.winStart, p.WinStart},
		RegisterWrite{r.winEnd, p.WinEnd},
	)
	for i, a := range p.StartAddr {
		if a != 0 || i == 0 {
			w = append(w, RegisterWrite{r.start[i], a})
		}
	}
	if p.Format.IsPlanar() && !p.HQV {
		w = append(w,
			RegisterWrite{r.cb, p.StartCb},
			RegisterWrite{r.cr, p.StartCr},
		)
	}
	w = append(w,
		RegisterWrite{r.stride, p.Stride},
		RegisterWrite{r.fetch, p.FetchCount},
		RegisterWrite{r.zoom, p.ZoomCtl},
		RegisterWrite{r.mini, p.MiniCtl},
		RegisterWrite{p.Pipeline.fifoReg(), p.FIFOCtl},
		RegisterWrite{p.Pipeline.prefifoReg(), p.PreFIFO},
		RegisterWrite{r.srcSize, p.SourceSize},
	)
	w = append(w, p.KeyWrites...)
	w = append(w, RegisterWrite{r.control, p.Control})
	return w
}
