//go:build !headless

// debug_overlay.go - Register dump panel for the Ebiten preview

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
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	debugLineH   = 14
	debugMarginX = 8
	debugMarginY = 6
	debugScroll  = 10
)

var (
	debugPanelBg = color.RGBA{0x00, 0x22, 0x55, 0xD0}
	debugTitleFg = color.RGBA{0x00, 0xDD, 0xDD, 0xFF}
	debugLineFg  = color.RGBA{0xEE, 0xEE, 0xEE, 0xFF}
	debugZeroFg  = color.RGBA{0x80, 0x80, 0x90, 0xFF}
)

// DebugOverlay shows the register dump on top of the preview. Tab toggles
// it, F5 re-reads the registers, PgUp/PgDn scroll.
type DebugOverlay struct {
	source func() string
	lines  []string
	shown  bool
	scroll int
}

func NewDebugOverlay(source func() string) *DebugOverlay {
	return &DebugOverlay{source: source}
}

func (o *DebugOverlay) Visible() bool {
	return o.shown
}

func (o *DebugOverlay) refresh() {
	if o.source == nil {
		o.lines = nil
		return
	}
	o.lines = splitDumpLines(o.source())
}

func splitDumpLines(dump string) []string {
	dump = strings.TrimRight(dump, "\n")
	if dump == "" {
		return nil
	}
	return strings.Split(dump, "\n")
}

// debugWindow returns the slice bounds of the lines to draw when rows fit
// on screen and the view is scrolled down by scroll lines.
func debugWindow(total, rows, scroll int) (int, int) {
	if rows <= 0 || total == 0 {
		return 0, 0
	}
	maxScroll := max(total-rows, 0)
	scroll = min(max(scroll, 0), maxScroll)
	return scroll, min(scroll+rows, total)
}

// HandleInput processes the panel keys. Pan keys stay with the preview.
func (o *DebugOverlay) HandleInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		o.shown = !o.shown
		if o.shown {
			o.scroll = 0
			o.refresh()
		}
	}
	if !o.shown {
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		o.refresh()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) {
		o.scroll += debugScroll
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) {
		o.scroll = max(o.scroll-debugScroll, 0)
	}
}

// Draw renders the panel over the left part of the screen.
func (o *DebugOverlay) Draw(screen *ebiten.Image) {
	if !o.shown {
		return
	}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	face := basicfont.Face7x13
	panelW := min(w, 46*7+2*debugMarginX)
	ebitenutil.DrawRect(screen, 0, 0, float64(panelW), float64(h), debugPanelBg)

	text.Draw(screen, "OVERLAY REGISTERS  F5 reload  PgUp/PgDn", face, debugMarginX, debugMarginY+11, debugTitleFg)
	rows := (h - 2*debugMarginY - debugLineH) / debugLineH
	start, end := debugWindow(len(o.lines), rows, o.scroll)
	o.scroll = start
	y := debugMarginY + debugLineH + 11
	for _, line := range o.lines[start:end] {
		fg := debugLineFg
		if strings.HasSuffix(line, "= 0x00000000") {
			fg = debugZeroFg
		}
		text.Draw(screen, line, face, debugMarginX, y, fg)
		y += debugLineH
	}
}
