// overlay_lifecycle.go - Overlay Surface Lifecycle

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
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SurfaceLifecycle owns the surface sets of all streams.
type SurfaceLifecycle struct {
	mu    sync.Mutex
	alloc SurfaceAllocator
	dev   OverlayDevice
	rev   RevisionProfile
	sets  map[StreamID]*SurfaceSet
	log   zerolog.Logger
}

func NewSurfaceLifecycle(alloc SurfaceAllocator, dev OverlayDevice, rev RevisionProfile, log zerolog.Logger) *SurfaceLifecycle {
	return &SurfaceLifecycle{
		alloc: alloc,
		dev:   dev,
		rev:   rev,
		sets:  make(map[StreamID]*SurfaceSet),
		log:   log,
	}
}

func (l *SurfaceLifecycle) bufferCount() int {
	if l.rev.TripleBuffer() {
		return 3
	}
	return 2
}

// Ensure returns the surface set of stream, (re)creating it when none exists
// or when format, size or HQV use changed. New surfaces are cleared to black.
func (l *SurfaceLifecycle) Ensure(stream StreamID, format FourCC, w, h int, hqv bool) (*SurfaceSet, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("surface %dx%d: %w", w, h, ErrInvalidRect)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if ss, ok := l.sets[stream]; ok {
		if ss.matches(format, w, h, hqv) {
			return ss, nil
		}
		l.release(ss)
		delete(l.sets, stream)
	}

	ss := &SurfaceSet{
		Stream: stream,
		Format: format,
		Width:  w,
		Height: h,
		Pitch:  format.MinPitch(w),
	}
	n := l.bufferCount()
	for i := 0; i < n; i++ {
		s, err := l.allocSurface(format, w, h, ss.Pitch)
		if err != nil {
			l.release(ss)
			return nil, err
		}
		ss.Surfaces = append(ss.Surfaces, s)
	}
	if hqv {
		ss.HQVPitch = FOURCC_YUY2.MinPitch(w)
		for i := 0; i < n; i++ {
			s, err := l.allocSurface(FOURCC_YUY2, w, h, ss.HQVPitch)
			if err != nil {
				l.release(ss)
				return nil, err
			}
			ss.HQV = append(ss.HQV, s)
		}
	}

	l.sets[stream] = ss
	l.log.Debug().
		Uint32("stream", uint32(stream)).
		Str("format", format.String()).
		Int("width", w).Int("height", h).
		Int("buffers", n).Bool("hqv", hqv).
		Int("free", l.alloc.FreeBytes()).
		Msg("[lifecycle] surfaces created")
	return ss, nil
}

func (l *SurfaceLifecycle) allocSurface(format FourCC, w, h, pitch int) (*Surface, error) {
	s := &Surface{Pitch: pitch, Width: w, Height: h, Format: format}
	a, err := l.alloc.Allocate(s.Size())
	if err != nil {
		return nil, err
	}
	s.Alloc = a
	s.Offset = a.Offset
	s.Base = l.dev.VRAMBase() + uint32(a.Offset)
	ClearSurface(l.dev.VRAM(), s)
	return s, nil
}

func (l *SurfaceLifecycle) release(ss *SurfaceSet) {
	for _, s := range ss.Surfaces {
		l.alloc.Free(&s.Alloc)
	}
	for _, s := range ss.HQV {
		l.alloc.Free(&s.Alloc)
	}
	ss.Surfaces = nil
	ss.HQV = nil
}

// Get returns the current surface set of stream.
func (l *SurfaceLifecycle) Get(stream StreamID) (*SurfaceSet, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ss, ok := l.sets[stream]
	return ss, ok
}

// Destroy frees every surface of stream. Safe to call at any time.
func (l *SurfaceLifecycle) Destroy(stream StreamID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ss, ok := l.sets[stream]; ok {
		l.release(ss)
		delete(l.sets, stream)
	}
}
