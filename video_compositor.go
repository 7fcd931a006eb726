// video_compositor.go - Video Compositor for the overlay preview

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
video_compositor.go - Video Compositor for Multiple Video Sources

Collects frames from registered VideoSource implementations at the refresh
rate, layers them by GetLayer (higher on top), signals vertical blank back
to each source and pushes the result to a VideoOutput.

Signal Flow:
1. The emulated overlay chip registers with the compositor
2. Every tick the compositor pulls one frame per enabled source
3. Sources are scaled to the output size with x/image/draw and drawn
   bottom layer first
4. SignalVSync lets the chip retire pending fires and HQV flips
5. The composed frame is sent to the VideoOutput

Architecture:
                    ┌──────────────┐
  Engine → regs  →  │ OverlayChip  │ ──┐     ┌─────────────┐     ┌─────────┐
  Engine → VRAM  →  │  (scan-out)  │   ├───→ │ Compositor  │ ──→ │ Display │
                    └──────────────┘   │     └─────────────┘     └─────────┘
                     other sources  ───┘
*/

package main

import (
	"image"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// Compositor constants
const (
	COMPOSITOR_REFRESH_RATE     = 60
	COMPOSITOR_REFRESH_INTERVAL = time.Second / COMPOSITOR_REFRESH_RATE
	COMPOSITOR_BYTES_PER_PIXEL  = 4
)

// VideoCompositor blends multiple video sources into a single output
type VideoCompositor struct {
	mutex       sync.RWMutex
	output      VideoOutput
	sources     []VideoSource
	final       *image.RGBA
	done        chan struct{}
	stopOnce    sync.Once
	frameWidth  int
	frameHeight int
	frames      uint64
	onFrame     func(frame uint64)
	log         zerolog.Logger
}

// NewVideoCompositor creates a compositor for output at width x height.
func NewVideoCompositor(output VideoOutput, width, height int, log zerolog.Logger) *VideoCompositor {
	return &VideoCompositor{
		output:      output,
		sources:     make([]VideoSource, 0),
		done:        make(chan struct{}),
		frameWidth:  width,
		frameHeight: height,
		log:         log,
	}
}

// RegisterSource adds a video source to the compositor
func (c *VideoCompositor) RegisterSource(source VideoSource) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sources = append(c.sources, source)
	sort.SliceStable(c.sources, func(i, j int) bool {
		return c.sources[i].GetLayer() < c.sources[j].GetLayer()
	})
}

// SetDimensions sets the output frame dimensions
func (c *VideoCompositor) SetDimensions(width, height int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.frameWidth = width
	c.frameHeight = height
	c.final = nil
}

// OnFrame installs a callback run after every composed frame.
func (c *VideoCompositor) OnFrame(fn func(frame uint64)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onFrame = fn
}

// Start begins the compositor refresh loop
func (c *VideoCompositor) Start() error {
	go c.refreshLoop()
	return nil
}

// Stop halts the compositor refresh loop
func (c *VideoCompositor) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// refreshLoop runs the compositor at 60Hz
func (c *VideoCompositor) refreshLoop() {
	ticker := time.NewTicker(COMPOSITOR_REFRESH_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.Composite()
		}
	}
}

// Composite runs one refresh: collect, blend, signal vsync, output.
func (c *VideoCompositor) Composite() []byte {
	c.mutex.Lock()
	if c.final == nil || c.final.Rect.Dx() != c.frameWidth || c.final.Rect.Dy() != c.frameHeight {
		c.final = image.NewRGBA(image.Rect(0, 0, c.frameWidth, c.frameHeight))
	}
	clear(c.final.Pix)

	hasContent := false
	for _, source := range c.sources {
		if !source.IsEnabled() {
			continue
		}
		// Vertical blank comes before the frame so a fire issued during
		// the previous frame is visible now.
		source.SignalVSync()

		frame := source.GetFrame()
		if frame == nil {
			continue
		}
		hasContent = true
		srcW, srcH := source.GetDimensions()
		c.blendFrame(frame, srcW, srcH)
	}
	c.frames++
	frames := c.frames
	onFrame := c.onFrame
	out := c.final.Pix
	c.mutex.Unlock()

	if hasContent && c.output != nil && c.output.IsStarted() {
		if err := c.output.UpdateFrame(out); err != nil {
			c.log.Error().Err(err).Msg("compositor: output update failed")
		}
	}
	if onFrame != nil {
		onFrame(frames)
	}
	return out
}

// blendFrame draws a source frame over the final frame, scaled to fit.
// Fully transparent source pixels leave the layer below visible.
func (c *VideoCompositor) blendFrame(srcFrame []byte, srcW, srcH int) {
	if srcW <= 0 || srcH <= 0 || len(srcFrame) < srcW*srcH*COMPOSITOR_BYTES_PER_PIXEL {
		return
	}
	src := &image.RGBA{Pix: srcFrame, Stride: srcW * COMPOSITOR_BYTES_PER_PIXEL, Rect: image.Rect(0, 0, srcW, srcH)}
	if srcW == c.frameWidth && srcH == c.frameHeight {
		draw.Draw(c.final, c.final.Rect, src, image.Point{}, draw.Over)
		return
	}
	draw.NearestNeighbor.Scale(c.final, c.final.Rect, src, src.Rect, draw.Over, nil)
}
