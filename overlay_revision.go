/*
overlay_revision.go - Hardware Revision Profiles

Each chip revision differs in FIFO sizing, HQV fetch units, the number of HQV
destination buffers and whether V3 has its own colour key. A profile is chosen
once when the engine is created; the scaling code asks the profile instead of
branching on a chip ID.
*/

package main

import (
	"fmt"
	"sort"
)

// RevisionProfile describes the quirks of one overlay hardware revision.
type RevisionProfile interface {
	Name() string

	// FIFO table entries
	PrimaryPacked() FIFOConfig
	PrimaryHQV() FIFOConfig
	PrimaryMinified() FIFOConfig
	SecondaryPacked() FIFOConfig
	SecondaryPlanar() FIFOConfig

	HasHQV() bool
	TripleBuffer() bool     // HQV keeps three destination buffers
	TwoColorKeys() bool     // V3 has its own colour key register
	NewScaleControl() bool  // HQV minifies by ratio instead of by divisor
	HQVFetchByteUnit() bool // HQV_SRC_FETCH_LINE counts bytes, not qwords
	FetchGranule() int      // byte alignment of a pipeline line fetch
}

type revisionProfile struct {
	name            string
	primaryPacked   FIFOConfig
	primaryHQV      FIFOConfig
	primaryMinified FIFOConfig
	secondaryPacked FIFOConfig
	secondaryPlanar FIFOConfig
	hqv             bool
	triple          bool
	twoKeys         bool
	newScale        bool
	hqvByteFetch    bool
	granule         int
}

func (r *revisionProfile) Name() string                { return r.name }
func (r *revisionProfile) PrimaryPacked() FIFOConfig   { return r.primaryPacked }
func (r *revisionProfile) PrimaryHQV() FIFOConfig      { return r.primaryHQV }
func (r *revisionProfile) PrimaryMinified() FIFOConfig { return r.primaryMinified }
func (r *revisionProfile) SecondaryPacked() FIFOConfig { return r.secondaryPacked }
func (r *revisionProfile) SecondaryPlanar() FIFOConfig { return r.secondaryPlanar }
func (r *revisionProfile) HasHQV() bool                { return r.hqv }
func (r *revisionProfile) TripleBuffer() bool          { return r.triple }
func (r *revisionProfile) TwoColorKeys() bool          { return r.twoKeys }
func (r *revisionProfile) NewScaleControl() bool       { return r.newScale }
func (r *revisionProfile) HQVFetchByteUnit() bool      { return r.hqvByteFetch }
func (r *revisionProfile) FetchGranule() int           { return r.granule }

var (
	fifo64    = FIFOConfig{Depth: 64, PreThreshold: 56, Threshold: 56}
	fifo48    = FIFOConfig{Depth: 48, PreThreshold: 40, Threshold: 40}
	fifo32    = FIFOConfig{Depth: 32, PreThreshold: 29, Threshold: 16}
	fifo32V3  = FIFOConfig{Depth: 32, PreThreshold: 16, Threshold: 16}
	fifo16V3  = FIFOConfig{Depth: 16, PreThreshold: 16, Threshold: 8}
	fifo16    = FIFOConfig{Depth: 16, PreThreshold: 12, Threshold: 8}
	fifo100   = FIFOConfig{Depth: 100, PreThreshold: 89, Threshold: 89}
	fifo64V3  = FIFOConfig{Depth: 64, PreThreshold: 61, Threshold: 61}
	fifo225V3 = FIFOConfig{Depth: 225, PreThreshold: 200, Threshold: 250}

	// Narrow planar sources skew when the FIFO prefetches more than the
	// line holds (fetch count <= 5).
	fifoNarrowPrimary   = FIFOConfig{Depth: 16, PreThreshold: 0, Threshold: 0}
	fifoNarrowSecondary = FIFOConfig{Depth: 16, PreThreshold: 16, Threshold: 0}
	// V3 corrupts lines of 8 pixels or less unless the FIFO is one deep.
	fifoTinySecondary = FIFOConfig{Depth: 1, PreThreshold: 0, Threshold: 0}

	fifoHide = FIFOConfig{Depth: FIFO_HIDE_DEPTH, PreThreshold: FIFO_HIDE_PRETHRESHOLD, Threshold: FIFO_HIDE_THRESHOLD}
)

// newCLE266Ax returns the first CLE266 stepping. extendedFIFO mirrors the
// BIOS option that widens the V1 FIFO to 48 entries.
func newCLE266Ax(extendedFIFO bool) RevisionProfile {
	p := &revisionProfile{
		name:            "cle266-ax",
		primaryPacked:   fifo32,
		primaryHQV:      fifo32,
		primaryMinified: fifo16,
		secondaryPacked: fifo32V3,
		secondaryPlanar: fifo16V3,
		hqv:             true,
		granule:         16,
	}
	if extendedFIFO {
		p.name = "cle266-ax-ext"
		p.primaryPacked = fifo48
		p.primaryMinified = fifo48
	}
	return p
}

var revisionProfiles = map[string]func() RevisionProfile{
	"cle266-ax":     func() RevisionProfile { return newCLE266Ax(false) },
	"cle266-ax-ext": func() RevisionProfile { return newCLE266Ax(true) },
	"cle266-cx": func() RevisionProfile {
		return &revisionProfile{
			name:            "cle266-cx",
			primaryPacked:   fifo64,
			primaryHQV:      fifo64,
			primaryMinified: fifo64,
			secondaryPacked: fifo64,
			secondaryPlanar: fifo64,
			hqv:             true,
			granule:         16,
		}
	},
	"k8m800": func() RevisionProfile {
		return &revisionProfile{
			name:            "k8m800",
			primaryPacked:   fifo64,
			primaryHQV:      fifo64,
			primaryMinified: fifo64,
			secondaryPacked: fifo100,
			secondaryPlanar: fifo100,
			hqv:             true,
			twoKeys:         true,
			granule:         16,
		}
	},
	"pm800": func() RevisionProfile {
		return &revisionProfile{
			name:            "pm800",
			primaryPacked:   fifo64,
			primaryHQV:      fifo64,
			primaryMinified: fifo64,
			secondaryPacked: fifo64V3,
			secondaryPlanar: fifo64V3,
			hqv:             true,
			triple:          true,
			twoKeys:         true,
			granule:         16,
		}
	},
	"p4m890": func() RevisionProfile {
		return &revisionProfile{
			name:            "p4m890",
			primaryPacked:   fifo64,
			primaryHQV:      fifo64,
			primaryMinified: fifo64,
			secondaryPacked: fifo225V3,
			secondaryPlanar: fifo225V3,
			hqv:             true,
			twoKeys:         true,
			newScale:        true,
			hqvByteFetch:    true,
			granule:         32,
		}
	},
}

// LookupRevision returns the profile registered under name.
func LookupRevision(name string) (RevisionProfile, error) {
	ctor, ok := revisionProfiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown overlay revision %q (known: %v)", name, RevisionNames())
	}
	return ctor(), nil
}

func RevisionNames() []string {
	names := make([]string, 0, len(revisionProfiles))
	for n := range revisionProfiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
