package main

import (
	"sync"

	"golang.org/x/term"
)

const PAN_HOST_STEP = 8

// PanAction is one decoded keyboard command.
type PanAction int

const (
	PAN_NONE PanAction = iota
	PAN_MOVE
	PAN_DUMP
	PAN_QUIT
)

// panKeyDecoder turns raw terminal bytes into pan commands. Arrow keys
// arrive as ESC [ A..D.
type panKeyDecoder struct {
	state int
}

func (d *panKeyDecoder) Feed(b byte) (PanAction, int, int) {
	switch d.state {
	case 1:
		if b == '[' || b == 'O' {
			d.state = 2
			return PAN_NONE, 0, 0
		}
		d.state = 0
	case 2:
		d.state = 0
		switch b {
		case 'A':
			return PAN_MOVE, 0, -PAN_HOST_STEP
		case 'B':
			return PAN_MOVE, 0, PAN_HOST_STEP
		case 'C':
			return PAN_MOVE, PAN_HOST_STEP, 0
		case 'D':
			return PAN_MOVE, -PAN_HOST_STEP, 0
		}
		return PAN_NONE, 0, 0
	}

	switch b {
	case 0x1B:
		d.state = 1
	case 'h':
		return PAN_MOVE, -PAN_HOST_STEP, 0
	case 'l':
		return PAN_MOVE, PAN_HOST_STEP, 0
	case 'k':
		return PAN_MOVE, 0, -PAN_HOST_STEP
	case 'j':
		return PAN_MOVE, 0, PAN_HOST_STEP
	case 'r', 'd':
		return PAN_DUMP, 0, 0
	case 'q', 0x03:
		return PAN_QUIT, 0, 0
	}
	return PAN_NONE, 0, 0
}

// PanHost reads raw stdin and moves the viewport. Only instantiated in
// main.go for interactive use.
type PanHost struct {
	onPan        func(dx, dy int)
	onDump       func()
	quit         chan struct{}
	quitOnce     sync.Once
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
	decoder      panKeyDecoder
}

func NewPanHost(onPan func(dx, dy int), onDump func()) *PanHost {
	return &PanHost{
		onPan:  onPan,
		onDump: onDump,
		quit:   make(chan struct{}),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Quit is closed when the user presses q or Ctrl-C.
func (h *PanHost) Quit() <-chan struct{} {
	return h.quit
}

func (h *PanHost) route(b byte) {
	action, dx, dy := h.decoder.Feed(b)
	switch action {
	case PAN_MOVE:
		if h.onPan != nil {
			h.onPan(dx, dy)
		}
	case PAN_DUMP:
		if h.onDump != nil {
			h.onDump()
		}
	case PAN_QUIT:
		h.quitOnce.Do(func() { close(h.quit) })
	}
}
