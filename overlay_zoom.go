// overlay_zoom.go - Overlay Scaling Ladder

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
overlay_zoom.go - Zoom and Minify Ratio Calculation

Each axis is scaled in two stages. An integer power-of-two divider (the
minify ladder /2, /4, /8, /16) brings the source down to at most the
destination size, then a fixed-point fine zoom stretches the remainder up to
the exact destination. Sources smaller than the destination skip the divider
and use the fine zoom alone.

Horizontal factors are 11-bit (value/2048), vertical factors 10-bit
(value/1024).
*/

package main

// ZoomMode is the scaling stage active on one axis.
type ZoomMode int

const (
	ZOOM_NONE ZoomMode = iota
	ZOOM_IN
	ZOOM_MINIFY
)

func (m ZoomMode) String() string {
	switch m {
	case ZOOM_IN:
		return "zoom-in"
	case ZOOM_MINIFY:
		return "minify"
	}
	return "none"
}

// FilterTaps is the scaler filter length.
type FilterTaps int

const (
	TAPS_4 FilterTaps = 4
	TAPS_8 FilterTaps = 8
)

// AxisZoom is the scaling of one axis. Factor is only used in ZOOM_IN mode;
// Divisor, MinifyRatio and FineFactor only in ZOOM_MINIFY mode.
type AxisZoom struct {
	Mode        ZoomMode
	Factor      uint32 // zoom-in factor
	Divisor     int    // 1, 2, 4, 8 or 16
	MinifyRatio uint32 // dst/src in 1/2048 units, rounded up
	FineFactor  uint32 // zoom-in applied after the divider, 0 if exact
	Taps        FilterTaps
	Interpolate bool
	Clamped     bool // divisor 16 still leaves the source wider than dst
	Alignment   int  // extra fetch units for the divider: 0, 3, 7 or 15
}

// ZoomParameters is the scaling of both axes.
type ZoomParameters struct {
	H AxisZoom
	V AxisZoom
}

// divisorAlignment is the fetch alignment the divider needs to keep whole
// source groups in one fetch.
func divisorAlignment(d int) int {
	switch d {
	case 1:
		return 0
	case 2:
		return 3
	case 4:
		return 7
	}
	return 15
}

func log2Divisor(d int) uint32 {
	n := uint32(0)
	for d > 1 {
		d >>= 1
		n++
	}
	return n
}

// minifyLadder walks /2, /4, /8, /16 and returns the first divisor whose
// reduced size fits dst, clamping at /16.
func minifyLadder(src, dst int) (divisor, reduced int, clamped bool) {
	reduced = src
	for n := 1; n <= MAX_MINIFY_LOG2; n++ {
		reduced = src >> n
		if reduced <= dst {
			return 1 << n, reduced, false
		}
	}
	return 1 << MAX_MINIFY_LOG2, src >> MAX_MINIFY_LOG2, true
}

// minifyRatio is dst/src in 1/2048 units, rounded up and limited to 11 bits.
func minifyRatio(src, dst int) uint32 {
	if src <= 0 {
		return 0
	}
	r := (dst*MINIFY_RATIO_ONE + src - 1) / src
	if r > HQV_MINIFY_RATIO {
		r = HQV_MINIFY_RATIO
	}
	return uint32(r)
}

// horizontalZoom computes the X axis scaling.
func horizontalZoom(srcW, dstW int) AxisZoom {
	switch {
	case srcW == dstW:
		return AxisZoom{Mode: ZOOM_NONE, Divisor: 1, Taps: TAPS_4}
	case srcW < dstW:
		return AxisZoom{
			Mode:        ZOOM_IN,
			Factor:      uint32(srcW*ZOOM_H_ONE/dstW) & X_ZOOM_MASK,
			Divisor:     1,
			Taps:        TAPS_4,
			Interpolate: true,
		}
	}

	d, reduced, clamped := minifyLadder(srcW, dstW)
	z := AxisZoom{
		Mode:        ZOOM_MINIFY,
		Divisor:     d,
		MinifyRatio: minifyRatio(srcW, dstW),
		Taps:        TAPS_4,
		Interpolate: true,
		Clamped:     clamped,
		Alignment:   divisorAlignment(d),
	}
	if d >= 8 {
		z.Taps = TAPS_8
	}
	if reduced < dstW {
		// The divider output is two pixels short on this family; zooming
		// from reduced-2 avoids fetching past the end of the line.
		fine := (reduced - 2) * ZOOM_H_ONE / dstW
		if fine < 0 {
			fine = 0
		}
		z.FineFactor = uint32(fine) & X_ZOOM_MASK
	}
	return z
}

// verticalZoom computes the Y axis scaling. With panel expansion the panel
// scaler consumes one extra line, so the destination is one line taller.
func verticalZoom(srcH, dstH int, panelExpansion bool) AxisZoom {
	if panelExpansion {
		dstH++
	}
	switch {
	case srcH == dstH:
		return AxisZoom{Mode: ZOOM_NONE, Divisor: 1, Taps: TAPS_4}
	case srcH < dstH:
		return AxisZoom{
			Mode:        ZOOM_IN,
			Factor:      uint32(srcH*ZOOM_V_ONE/dstH) & Y_ZOOM_MASK,
			Divisor:     1,
			Taps:        TAPS_4,
			Interpolate: true,
		}
	}

	d, reduced, clamped := minifyLadder(srcH, dstH)
	z := AxisZoom{
		Mode:        ZOOM_MINIFY,
		Divisor:     d,
		MinifyRatio: minifyRatio(srcH, dstH),
		Taps:        TAPS_4,
		Interpolate: true,
		Clamped:     clamped,
		Alignment:   divisorAlignment(d),
	}
	if d >= 8 {
		z.Taps = TAPS_8
	}
	if reduced < dstH {
		z.FineFactor = uint32(reduced*ZOOM_V_ONE/dstH) & Y_ZOOM_MASK
	}
	return z
}

// CalculateZoom returns the scaling of both axes.
func CalculateZoom(srcW, srcH, dstW, dstH int, panelExpansion bool) ZoomParameters {
	return ZoomParameters{
		H: horizontalZoom(srcW, dstW),
		V: verticalZoom(srcH, dstH, panelExpansion),
	}
}

// TooSmall reports that neither axis can be reduced far enough.
func (z ZoomParameters) TooSmall() bool {
	return z.H.Clamped && z.V.Clamped
}

// zoomControl encodes the pipeline zoom register. On the HQV path with ratio
// minification the HQV output already has the destination size, so only
// zoom-in factors remain for the pipeline.
func (z ZoomParameters) zoomControl(hqvRatio bool) uint32 {
	var v uint32
	switch {
	case z.H.Mode == ZOOM_IN:
		v |= z.H.Factor<<X_ZOOM_SHIFT | X_ZOOM_ENABLE
	case z.H.Mode == ZOOM_MINIFY && z.H.FineFactor != 0 && !hqvRatio:
		v |= z.H.FineFactor<<X_ZOOM_SHIFT | X_ZOOM_ENABLE
	}
	switch {
	case z.V.Mode == ZOOM_IN:
		v |= z.V.Factor | Y_ZOOM_ENABLE
	case z.V.Mode == ZOOM_MINIFY && z.V.FineFactor != 0 && !hqvRatio:
		v |= z.V.FineFactor | Y_ZOOM_ENABLE
	}
	return v
}

// miniControl encodes the pipeline minify register. Divider bits are only
// set when the pipeline itself divides (no HQV interposed).
func (z ZoomParameters) miniControl(pipelineDivides bool) uint32 {
	var v uint32
	if z.H.Interpolate {
		v |= X_INTERPOLY
	}
	if z.V.Interpolate {
		v |= Y_INTERPOLY | YCBCR_INTERPOLY
	}
	if pipelineDivides {
		if z.H.Mode == ZOOM_MINIFY {
			v |= (log2Divisor(z.H.Divisor)<<1 - 1) << X_DIV_SHIFT
		}
		if z.V.Mode == ZOOM_MINIFY {
			v |= (log2Divisor(z.V.Divisor)<<1 - 1) << Y_DIV_SHIFT
		}
	}
	return v
}

// hqvFilter encodes the HQV tap selection.
func (z ZoomParameters) hqvFilter() uint32 {
	v := uint32(HQV_H_TAP4 | HQV_V_TAP4)
	if z.H.Taps == TAPS_8 {
		v = v&^HQV_H_TAP4 | HQV_H_TAP8
	}
	if z.V.Taps == TAPS_8 {
		v = v&^HQV_V_TAP4 | HQV_V_TAP8
	}
	return v
}

// hqvMinify encodes HQV_MINIFY_CONTROL. Revisions with ratio scaling minify
// straight to the destination size; older ones divide by the ladder divisor
// and leave the fine zoom to the pipeline.
func (z ZoomParameters) hqvMinify(ratio bool) uint32 {
	var v uint32
	if z.H.Mode == ZOOM_MINIFY {
		v |= HQV_H_MINIFY_ENABLE
		if ratio {
			v |= HQV_H_MINIFY_DOWN | z.H.MinifyRatio&HQV_MINIFY_RATIO
		} else {
			v |= log2Divisor(z.H.Divisor)
		}
	}
	if z.V.Mode == ZOOM_MINIFY {
		v |= HQV_V_MINIFY_ENABLE
		if ratio {
			v |= HQV_V_MINIFY_DOWN | (z.V.MinifyRatio&HQV_MINIFY_RATIO)<<HQV_V_MINIFY_SHIFT
		} else {
			v |= log2Divisor(z.V.Divisor) << HQV_V_MINIFY_SHIFT
		}
	}
	return v
}
