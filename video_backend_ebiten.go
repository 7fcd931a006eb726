//go:build !headless

// video_backend_ebiten.go - Ebiten preview window for the overlay chip

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
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/rs/zerolog/log"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

func init() {
	compiledFeatures = append(compiledFeatures, "video:ebiten")
}

const (
	PREVIEW_DEFAULT_WIDTH  = 640
	PREVIEW_DEFAULT_HEIGHT = 480
	PREVIEW_MAX_SCALE      = 4
	PREVIEW_PAN_STEP       = 8
	PREVIEW_STATUS_HEIGHT  = 18
)

type EbitenOutput struct {
	running     atomic.Bool
	window      *ebiten.Image
	width       int
	height      int
	title       string
	fullscreen  bool
	scale       int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  atomic.Uint64
	refreshRate int
	vsyncChan   chan struct{}
	done        chan struct{}

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool
	status        string

	panHandler  func(dx, dy int)
	dumpHandler func() string
	debug       *DebugOverlay
}

func NewEbitenOutput() (VideoOutput, error) {
	return &EbitenOutput{
		width:         PREVIEW_DEFAULT_WIDTH,
		height:        PREVIEW_DEFAULT_HEIGHT,
		title:         "overlay preview",
		scale:         1,
		frameBuffer:   make([]byte, PREVIEW_DEFAULT_WIDTH*PREVIEW_DEFAULT_HEIGHT*4),
		refreshRate:   COMPOSITOR_REFRESH_RATE,
		vsyncChan:     make(chan struct{}, 1),
		done:          make(chan struct{}),
		showStatusBar: true,
	}, nil
}

func clampScale(scale int) int {
	if scale < 1 {
		return 1
	}
	return min(scale, PREVIEW_MAX_SCALE)
}

func (eo *EbitenOutput) Start() error {
	if eo.running.Load() {
		return nil
	}
	eo.bufferMutex.Lock()
	eo.done = make(chan struct{})
	w, h, title := eo.width*eo.scale, eo.height*eo.scale, eo.title
	eo.bufferMutex.Unlock()
	eo.running.Store(true)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		defer func() {
			eo.running.Store(false)
			eo.bufferMutex.RLock()
			done := eo.done
			eo.bufferMutex.RUnlock()
			select {
			case <-done:
			default:
				close(done)
			}
		}()
		if err := ebiten.RunGame(eo); err != nil {
			log.Error().Err(err).Msg("preview window stopped")
		}
	}()

	// Wait for first Draw call to ensure Ebiten is ready
	<-eo.vsyncChan
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.running.Store(false)
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

// Done is closed when the window goes away.
func (eo *EbitenOutput) Done() <-chan struct{} {
	eo.bufferMutex.RLock()
	done := eo.done
	eo.bufferMutex.RUnlock()
	return done
}

func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, data)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	width := config.Width
	height := config.Height
	if width <= 0 {
		width = eo.width
	}
	if height <= 0 {
		height = eo.height
	}
	eo.width = width
	eo.height = height
	eo.scale = clampScale(config.Scale)
	if config.Title != "" {
		eo.title = config.Title
	}
	if config.RefreshRate > 0 {
		eo.refreshRate = config.RefreshRate
	}
	if newSize := eo.width * eo.height * 4; len(eo.frameBuffer) != newSize {
		eo.frameBuffer = make([]byte, newSize)
	}
	if eo.running.Load() {
		ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
		ebiten.SetWindowTitle(eo.title)
	}
	if eo.window != nil {
		eo.window.Dispose()
		eo.window = nil
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return DisplayConfig{
		Width:       eo.width,
		Height:      eo.height,
		Scale:       eo.scale,
		RefreshRate: eo.refreshRate,
		VSync:       true,
		Title:       eo.title,
	}
}

func (eo *EbitenOutput) WaitForVSync() error {
	<-eo.vsyncChan
	return nil
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount.Load()
}

func (eo *EbitenOutput) GetRefreshRate() int {
	return eo.refreshRate
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running.Load()
}

func (eo *EbitenOutput) SetStatus(text string) {
	eo.bufferMutex.Lock()
	eo.status = text
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetPanHandler(fn func(dx, dy int)) {
	eo.bufferMutex.Lock()
	eo.panHandler = fn
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetDumpHandler(fn func() string) {
	eo.bufferMutex.Lock()
	eo.dumpHandler = fn
	eo.debug = NewDebugOverlay(fn)
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || !eo.running.Load() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
		}
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.bufferMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.bufferMutex.Unlock()
	}
	eo.handleKeyboardInput()
	eo.bufferMutex.RLock()
	debug := eo.debug
	eo.bufferMutex.RUnlock()
	if debug != nil {
		debug.HandleInput()
	}
	return nil
}

// panDelta maps a just-pressed key to a viewport move.
func panDelta(key ebiten.Key) (int, int, bool) {
	switch key {
	case ebiten.KeyArrowLeft, ebiten.KeyH:
		return -PREVIEW_PAN_STEP, 0, true
	case ebiten.KeyArrowRight, ebiten.KeyL:
		return PREVIEW_PAN_STEP, 0, true
	case ebiten.KeyArrowUp, ebiten.KeyK:
		return 0, -PREVIEW_PAN_STEP, true
	case ebiten.KeyArrowDown, ebiten.KeyJ:
		return 0, PREVIEW_PAN_STEP, true
	}
	return 0, 0, false
}

var panKeys = []ebiten.Key{
	ebiten.KeyArrowLeft, ebiten.KeyArrowRight, ebiten.KeyArrowUp, ebiten.KeyArrowDown,
	ebiten.KeyH, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyL,
}

func (eo *EbitenOutput) handleKeyboardInput() {
	eo.bufferMutex.RLock()
	pan := eo.panHandler
	dump := eo.dumpHandler
	eo.bufferMutex.RUnlock()

	if pan != nil {
		for _, key := range panKeys {
			if !inpututil.IsKeyJustPressed(key) {
				continue
			}
			if dx, dy, ok := panDelta(key); ok {
				go pan(dx, dy)
			}
		}
	}
	// C copies the register dump to the clipboard.
	if dump != nil && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		go eo.copyToClipboard(dump())
	}
}

func (eo *EbitenOutput) copyToClipboard(s string) {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		log.Warn().Msg("clipboard unavailable, register dump not copied")
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(s))
	eo.SetStatus("register dump copied")
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	eo.bufferMutex.RLock()
	if eo.window == nil || eo.window.Bounds().Dx() != eo.width || eo.window.Bounds().Dy() != eo.height {
		eo.bufferMutex.RUnlock()
		eo.bufferMutex.Lock()
		eo.window = ebiten.NewImage(eo.width, eo.height)
		eo.bufferMutex.Unlock()
		eo.bufferMutex.RLock()
	}
	eo.window.WritePixels(eo.frameBuffer)
	showStatusBar := eo.showStatusBar
	status := eo.status
	debug := eo.debug
	eo.bufferMutex.RUnlock()
	screen.DrawImage(eo.window, nil)
	if debug != nil {
		debug.Draw(screen)
	}
	if showStatusBar {
		eo.drawStatusBar(screen, status)
	}

	eo.frameCount.Add(1)
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return eo.width, eo.height
}

func (eo *EbitenOutput) drawStatusBar(screen *ebiten.Image, status string) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if PREVIEW_STATUS_HEIGHT >= h {
		return
	}
	y := h - PREVIEW_STATUS_HEIGHT
	ebitenutil.DrawRect(screen, 0, float64(y), float64(w), PREVIEW_STATUS_HEIGHT, color.RGBA{0, 0, 0, 180})

	face := basicfont.Face7x13
	text.Draw(screen, status, face, 6, y+13, color.RGBA{0, 220, 90, 255})

	legend := "Arrows Pan  Tab Regs  C Copy  F11 Full  F12 Bar"
	legendX := max(w-text.BoundString(face, legend).Dx()-6, 6)
	text.Draw(screen, legend, face, legendX, y+13, color.RGBA{160, 160, 160, 255})
}
