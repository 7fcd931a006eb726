// overlay_engine.go - Overlay Engine

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
overlay_engine.go - Overlay Engine

The engine is the entry point for video streams. A stream creates its
surfaces, then repeatedly pushes frames (PutImage) or geometry
(UpdateOverlay); the engine clips the destination to the visible viewport,
plans the pipeline registers and hands them to the flip controller.

	CreateSurface    bind a pipeline, claim the HQV, allocate buffers
	UpdateOverlay    replan and flip, or hide when nothing is visible
	PutImage         copy a frame to the back buffer and present it
	StopStream       hide, free surfaces, release the pipeline

Geometry errors (ErrTooSmall, ErrInvalidRect) hide the overlay and are
returned so the caller can report them.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// OverlayRecord is the per-stream overlay state.
type OverlayRecord struct {
	Stream     StreamID
	Pipeline   Pipeline
	Format     FourCC
	OrigWidth  int
	OrigHeight int
	OrigPitch  int

	Src   image.Rectangle // source rectangle as requested
	Dst   image.Rectangle // destination in virtual screen coordinates
	Flags UpdateFlags
	Key   ColorKey

	Shown   bool // caller wants it on screen
	Visible bool // currently scanned out
	HQV     bool

	HDivisor  int
	VDivisor  int
	Alignment int
	UVOffset  uint32
	HQVAddrs  []uint32
	Plan      PlannedRegisters
	planned   bool
}

// EngineOptions wires an engine to its device and allocator.
type EngineOptions struct {
	Device        OverlayDevice
	Revision      RevisionProfile
	Allocator     SurfaceAllocator
	Screen        ScreenInfo
	Poll          PollLimits
	QueueCapacity int
	QueueAssert   bool
	Logger        zerolog.Logger
}

type OverlayEngine struct {
	mu       sync.Mutex
	dev      OverlayDevice
	rev      RevisionProfile
	screen   ScreenInfo
	sel      *PipelineSelector
	flip     *FlipController
	surfaces *SurfaceLifecycle
	records  map[StreamID]*OverlayRecord
	log      zerolog.Logger
}

func NewOverlayEngine(opts EngineOptions) (*OverlayEngine, error) {
	if opts.Device == nil {
		return nil, &VideoError{Operation: "engine creation", Details: "no device"}
	}
	if opts.Revision == nil {
		return nil, &VideoError{Operation: "engine creation", Details: "no revision profile"}
	}
	if opts.Allocator == nil {
		return nil, &VideoError{Operation: "engine creation", Details: "no allocator"}
	}
	if opts.Poll.MaxPolls == 0 {
		opts.Poll = DefaultPollLimits()
	}
	sel := NewPipelineSelector(opts.Revision)
	e := &OverlayEngine{
		dev:      opts.Device,
		rev:      opts.Revision,
		screen:   opts.Screen,
		sel:      sel,
		flip:     NewFlipController(opts.Device, sel, opts.Poll, opts.QueueCapacity, opts.QueueAssert, opts.Logger.With().Str("module", "flip").Logger()),
		surfaces: NewSurfaceLifecycle(opts.Allocator, opts.Device, opts.Revision, opts.Logger.With().Str("module", "alloc").Logger()),
		records:  make(map[StreamID]*OverlayRecord),
		log:      opts.Logger.With().Str("module", "overlay").Logger(),
	}
	return e, nil
}

// Flip exposes the flip controller, mainly for observers.
func (e *OverlayEngine) Flip() *FlipController { return e.flip }

func (e *OverlayEngine) Revision() RevisionProfile { return e.rev }

func (e *OverlayEngine) Screen() ScreenInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen
}

// CreateSurface allocates the buffers of stream for format at w x h.
func (e *OverlayEngine) CreateSurface(stream StreamID, format FourCC, w, h int) (*SurfaceSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ss, _, err := e.createSurface(stream, format, w, h)
	return ss, err
}

// createSurface also reports whether the buffers of stream were
// (re)allocated, which invalidates the last plan.
func (e *OverlayEngine) createSurface(stream StreamID, format FourCC, w, h int) (*SurfaceSet, bool, error) {
	pipe, err := e.sel.SelectPipeline(stream)
	if err != nil {
		return nil, false, err
	}
	rec, existed := e.records[stream]
	hqv := e.sel.ClaimHQV(stream, format)

	old, _ := e.surfaces.Get(stream)
	ss, err := e.surfaces.Ensure(stream, format, w, h, hqv)
	if err != nil {
		if !existed {
			e.sel.Release(stream)
		}
		return nil, false, fmt.Errorf("create surface for stream %d: %w", stream, err)
	}
	realloc := ss != old
	if !format.Supported() {
		e.log.Warn().Str("format", format.String()).Msg("[overlay] unsupported format, showing as packed passthrough")
	}

	if !existed {
		rec = &OverlayRecord{Stream: stream}
		e.records[stream] = rec
	}
	rec.Pipeline = pipe
	rec.Format = format
	rec.OrigWidth = w
	rec.OrigHeight = h
	rec.OrigPitch = ss.Pitch
	rec.HQV = hqv
	rec.HQVAddrs = ss.HQVAddrs()
	if realloc {
		rec.planned = false
	}
	return ss, realloc, nil
}

// UpdateOverlay sets the geometry and keys of stream and presents its front
// surface. key may be nil to keep the previous keys.
func (e *OverlayEngine) UpdateOverlay(ctx context.Context, stream StreamID, src, dst image.Rectangle, flags UpdateFlags, key *ColorKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateOverlay(ctx, stream, src, dst, flags, key)
}

func (e *OverlayEngine) updateOverlay(ctx context.Context, stream StreamID, src, dst image.Rectangle, flags UpdateFlags, key *ColorKey) error {
	rec, ok := e.records[stream]
	if !ok {
		return fmt.Errorf("update stream %d: %w", stream, ErrStreamUnknown)
	}
	rec.Src, rec.Dst, rec.Flags = src, dst, flags
	if key != nil {
		rec.Key = *key
	}
	if flags&FLAG_HIDE != 0 {
		rec.Shown = false
		return e.hide(ctx, rec)
	}
	rec.Shown = true
	return e.present(ctx, rec)
}

// present clips, plans and flips rec, hiding it when nothing is visible.
func (e *OverlayEngine) present(ctx context.Context, rec *OverlayRecord) error {
	ss, ok := e.surfaces.Get(rec.Stream)
	if !ok {
		return fmt.Errorf("present stream %d: %w", rec.Stream, ErrNoSurface)
	}

	src, dst := clipToViewport(rec.Src, rec.Dst, e.screen)
	if dst.Empty() || src.Empty() {
		return e.hide(ctx, rec)
	}

	front := ss.FrontSurface()
	y, u, v := front.PlaneAddrs()
	req := PlanRequest{
		Src:         src,
		Dst:         dst,
		Format:      rec.Format,
		OrigWidth:   rec.OrigWidth,
		OrigHeight:  rec.OrigHeight,
		OrigPitch:   rec.OrigPitch,
		Deinterlace: rec.Flags.deinterlace(),
		Pipeline:    rec.Pipeline,
		UseHQV:      rec.HQV,
		SrcY:        y,
		SrcU:        u,
		SrcV:        v,
		HQVDst:      rec.HQVAddrs,
		HQVPitch:    ss.HQVPitch,
		ColorKey:    rec.Key,
		Screen:      e.screen,
		Rev:         e.rev,
	}
	plan, err := PlanUpdate(req)
	if err != nil {
		if errors.Is(err, ErrTooSmall) {
			rec.Plan, rec.planned = plan, true
		}
		e.log.Warn().Err(err).Uint32("stream", uint32(rec.Stream)).Msg("[overlay] cannot display, hiding")
		if herr := e.hide(ctx, rec); herr != nil {
			return errors.Join(err, herr)
		}
		return err
	}
	if plan.Zoom.H.Clamped || plan.Zoom.V.Clamped {
		e.log.Warn().Uint32("stream", uint32(rec.Stream)).Msg("[overlay] minify clamped to /16")
	}

	if err := e.flip.Update(ctx, rec.Stream, plan); err != nil {
		// A timeout after the fire leaves the pipeline enabled.
		rec.Visible = e.pipelineEnabled(rec)
		return err
	}
	rec.Plan, rec.planned = plan, true
	rec.Visible = true
	rec.HDivisor = plan.Zoom.H.Divisor
	rec.VDivisor = plan.Zoom.V.Divisor
	rec.Alignment = plan.Zoom.H.Alignment
	rec.UVOffset = plan.UVOffset
	return nil
}

func (e *OverlayEngine) pipelineEnabled(rec *OverlayRecord) bool {
	return e.dev.Read32(rec.Pipeline.controlReg())&VIDEO_ENABLE != 0
}

func (e *OverlayEngine) hide(ctx context.Context, rec *OverlayRecord) error {
	if !rec.Visible && !e.pipelineEnabled(rec) {
		return nil
	}
	rec.Visible = false
	return e.flip.Hide(ctx, rec.Pipeline, e.sel.HoldsHQV(rec.Stream))
}

// clipToViewport converts dst from virtual screen to viewport coordinates,
// clipped to the visible area, and shrinks src by the same proportion.
func clipToViewport(src, dst image.Rectangle, screen ScreenInfo) (image.Rectangle, image.Rectangle) {
	vp := screen.Viewport()
	vis := dst.Intersect(vp)
	if vis.Empty() || src.Empty() || dst.Empty() {
		return image.Rectangle{}, image.Rectangle{}
	}
	if vis != dst {
		sw, sh := src.Dx(), src.Dy()
		dw, dh := dst.Dx(), dst.Dy()
		src = image.Rect(
			src.Min.X+(vis.Min.X-dst.Min.X)*sw/dw,
			src.Min.Y+(vis.Min.Y-dst.Min.Y)*sh/dh,
			src.Max.X-(dst.Max.X-vis.Max.X)*sw/dw,
			src.Max.Y-(dst.Max.Y-vis.Max.Y)*sh/dh,
		)
	}
	return src, vis.Sub(vp.Min)
}

// PutImage copies frame into the back buffer of stream, swaps and presents
// it with the given geometry. Unchanged geometry on the HQV path only flips
// the HQV source.
func (e *OverlayEngine) PutImage(ctx context.Context, stream StreamID, frame *Frame, src, dst image.Rectangle, flags UpdateFlags, key *ColorKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ss, realloc, err := e.createSurface(stream, frame.Format, frame.Width, frame.Height)
	if err != nil {
		return err
	}
	if err := CopyFrame(e.dev.VRAM(), ss.BackSurface(), frame); err != nil {
		return err
	}
	ss.Swap()

	rec := e.records[stream]
	same := !realloc && rec.Visible && rec.HQV && rec.planned &&
		rec.Src == src && rec.Dst == dst && rec.Flags == flags &&
		(key == nil || *key == rec.Key)
	if same {
		p := rec.Plan
		y, u, v := ss.FrontSurface().PlaneAddrs()
		p.HQVSrc = [3]uint32{y + p.SrcOffsetY, 0, 0}
		if rec.Format.IsPlanar() {
			p.HQVSrc[1] = u + p.UVOffset
			p.HQVSrc[2] = v + p.UVOffset
		}
		if err := e.flip.FlipHQVSource(ctx, p.HQVSrc[0], p.HQVSrc[1], p.HQVSrc[2]); err != nil {
			return err
		}
		rec.Plan = p
		return nil
	}
	return e.updateOverlay(ctx, stream, src, dst, flags, key)
}

// DestroySurface hides stream and frees its buffers. The pipeline stays
// bound until StopStream.
func (e *OverlayEngine) DestroySurface(ctx context.Context, stream StreamID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if rec, ok := e.records[stream]; ok {
		err = e.hide(ctx, rec)
		rec.planned = false
	}
	e.surfaces.Destroy(stream)
	e.flip.ForgetStream(stream)
	return err
}

// StopStream hides stream, frees its buffers and releases its pipeline.
func (e *OverlayEngine) StopStream(ctx context.Context, stream StreamID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if rec, ok := e.records[stream]; ok {
		err = e.hide(ctx, rec)
	}
	e.surfaces.Destroy(stream)
	e.flip.ForgetStream(stream)
	e.sel.Release(stream)
	delete(e.records, stream)
	return err
}

// AdjustPanOffset moves the viewport and replans every shown stream.
func (e *OverlayEngine) AdjustPanOffset(ctx context.Context, dx, dy int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.screen.PanX = max(0, e.screen.PanX+dx)
	e.screen.PanY = max(0, e.screen.PanY+dy)
	return e.replanAll(ctx)
}

// SetScreen replaces the scan-out geometry and replans every shown stream.
func (e *OverlayEngine) SetScreen(ctx context.Context, screen ScreenInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.screen = screen
	return e.replanAll(ctx)
}

func (e *OverlayEngine) replanAll(ctx context.Context) error {
	var errs []error
	for _, id := range e.streamIDs() {
		rec := e.records[id]
		if !rec.Shown {
			continue
		}
		if err := e.present(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *OverlayEngine) streamIDs() []StreamID {
	ids := make([]StreamID, 0, len(e.records))
	for id := range e.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SetCompositingPriority puts top above the other pipeline. The new order
// is latched by the next fire of either pipeline.
func (e *OverlayEngine) SetCompositingPriority(top Pipeline) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.SetCompositingPriority(top)
	e.dev.Write32(V_COMPOSE_MODE, e.sel.Compose())
}

// LastPlan returns the most recent plan of stream.
func (e *OverlayEngine) LastPlan(stream StreamID) (PlannedRegisters, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[stream]
	if !ok || !rec.planned {
		return PlannedRegisters{}, false
	}
	return rec.Plan, true
}

// Record returns a copy of the overlay state of stream.
func (e *OverlayEngine) Record(stream StreamID) (OverlayRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[stream]
	if !ok {
		return OverlayRecord{}, false
	}
	return *rec, true
}

// RegisterDump reads back every named overlay register.
func (e *OverlayEngine) RegisterDump() []RegisterWrite {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RegisterWrite, 0, len(registerNames))
	for _, addr := range sortedRegisterAddrs() {
		out = append(out, RegisterWrite{Addr: addr, Value: e.dev.Read32(addr)})
	}
	return out
}
