// overlay_pipeline.go - Overlay Pipeline Selection

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
)

// StreamID identifies one video stream (one port in X terms).
type StreamID uint32

// PipelineSelector hands out the two scaling pipelines and the single HQV
// unit to streams, and owns the shared compose-mode value.
type PipelineSelector struct {
	mu       sync.Mutex
	rev      RevisionProfile
	owners   [2]StreamID
	used     [2]bool
	hqvOwner StreamID
	hqvHeld  bool
	compose  uint32
}

func NewPipelineSelector(rev RevisionProfile) *PipelineSelector {
	return &PipelineSelector{rev: rev}
}

// SelectPipeline returns the pipeline bound to stream, binding the first
// free one on first use. Selection is stable until Release.
func (s *PipelineSelector) SelectPipeline(stream StreamID) (Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.owners {
		if s.used[i] && s.owners[i] == stream {
			return Pipeline(i), nil
		}
	}
	for i := range s.owners {
		if !s.used[i] {
			s.used[i] = true
			s.owners[i] = stream
			return Pipeline(i), nil
		}
	}
	return 0, fmt.Errorf("stream %d: %w", stream, ErrPipelineBusy)
}

// Lookup returns the pipeline bound to stream without binding one.
func (s *PipelineSelector) Lookup(stream StreamID) (Pipeline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.owners {
		if s.used[i] && s.owners[i] == stream {
			return Pipeline(i), true
		}
	}
	return 0, false
}

// Release frees the pipeline and HQV held by stream and drops its compose
// select bits.
func (s *PipelineSelector) Release(stream StreamID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.owners {
		if s.used[i] && s.owners[i] == stream {
			s.used[i] = false
			s.owners[i] = 0
			if Pipeline(i) == PIPE_SECONDARY {
				s.compose &^= COMPOSE_V3_SELECT_MASK
			} else {
				s.compose &^= COMPOSE_V1_SELECT_MASK
			}
		}
	}
	if s.hqvHeld && s.hqvOwner == stream {
		s.hqvHeld = false
		s.hqvOwner = 0
	}
}

// ClaimHQV reports whether the HQV is interposed for stream. A stream that
// already holds it keeps it; RGB formats never use it.
func (s *PipelineSelector) ClaimHQV(stream StreamID, format FourCC) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rev.HasHQV() || !format.IsYUV() {
		if s.hqvHeld && s.hqvOwner == stream {
			s.hqvHeld = false
		}
		return false
	}
	if s.hqvHeld {
		return s.hqvOwner == stream
	}
	s.hqvHeld = true
	s.hqvOwner = stream
	return true
}

// HoldsHQV reports whether stream currently owns the HQV.
func (s *PipelineSelector) HoldsHQV(stream StreamID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hqvHeld && s.hqvOwner == stream
}

// SetCompositingPriority puts top above the other pipeline. Last writer
// wins.
func (s *PipelineSelector) SetCompositingPriority(top Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if top == PIPE_SECONDARY {
		s.compose |= COMPOSE_V3_TOP
	} else {
		s.compose &^= COMPOSE_V3_TOP
	}
}

// ComposeBits returns the select bits the colour keys of pipe need.
func (s *PipelineSelector) ComposeBits(pipe Pipeline, key ColorKey) uint32 {
	_, bits := colorKeyWrites(s.rev, pipe, FOURCC_YUY2, 32, key)
	return bits
}

// SetSelect replaces the select bits of pipe in the compose value.
func (s *PipelineSelector) SetSelect(pipe Pipeline, bits uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mask := uint32(COMPOSE_V1_SELECT_MASK)
	if pipe == PIPE_SECONDARY {
		mask = COMPOSE_V3_SELECT_MASK
	}
	s.compose = s.compose&^mask | bits&mask
}

// Compose returns the shared compose-mode value without fire bits.
func (s *PipelineSelector) Compose() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compose
}
