package main

import (
	"fmt"
	"testing"
)

func TestCalculateZoom_EqualSizesNoScaling(t *testing.T) {
	z := CalculateZoom(720, 480, 720, 480, false)
	for name, a := range map[string]AxisZoom{"H": z.H, "V": z.V} {
		if a.Mode != ZOOM_NONE || a.Divisor != 1 || a.Taps != TAPS_4 {
			t.Fatalf("%s axis: got %+v, want no scaling with 4 taps", name, a)
		}
	}
	if got := z.zoomControl(false); got != 0 {
		t.Fatalf("zoom control 0x%08X, want 0", got)
	}
	if got := z.miniControl(true); got != 0 {
		t.Fatalf("mini control 0x%08X, want 0", got)
	}
}

func TestCalculateZoom_HalfSizeDividesExactly(t *testing.T) {
	z := CalculateZoom(720, 480, 360, 240, false)
	if z.H.Mode != ZOOM_MINIFY || z.H.Divisor != 2 || z.H.FineFactor != 0 {
		t.Fatalf("H: got %+v, want /2 without fine zoom", z.H)
	}
	if z.V.Mode != ZOOM_MINIFY || z.V.Divisor != 2 || z.V.FineFactor != 0 {
		t.Fatalf("V: got %+v, want /2 without fine zoom", z.V)
	}
	if z.H.Taps != TAPS_4 || z.V.Taps != TAPS_4 {
		t.Fatalf("taps H=%d V=%d, want 4", z.H.Taps, z.V.Taps)
	}
	if got := z.zoomControl(false); got != 0 {
		t.Fatalf("zoom control 0x%08X, want 0", got)
	}
	want := uint32(X_DIV_2 | Y_DIV_2 | X_INTERPOLY | Y_INTERPOLY | YCBCR_INTERPOLY)
	if got := z.miniControl(true); got != want {
		t.Fatalf("mini control 0x%08X, want 0x%08X", got, want)
	}
	if got := z.miniControl(false); got&(0x07<<X_DIV_SHIFT|0x07<<Y_DIV_SHIFT) != 0 {
		t.Fatalf("mini control 0x%08X carries divider bits without a dividing pipeline", got)
	}
}

func TestCalculateZoom_DoubleSizeZoomsIn(t *testing.T) {
	z := CalculateZoom(720, 480, 1440, 960, false)
	if z.H.Mode != ZOOM_IN || z.H.Factor != 1024 {
		t.Fatalf("H: got %+v, want zoom-in factor 1024", z.H)
	}
	if z.V.Mode != ZOOM_IN || z.V.Factor != 512 {
		t.Fatalf("V: got %+v, want zoom-in factor 512", z.V)
	}
	want := uint32(1024<<X_ZOOM_SHIFT | X_ZOOM_ENABLE | 512 | Y_ZOOM_ENABLE)
	if got := z.zoomControl(false); got != want {
		t.Fatalf("zoom control 0x%08X, want 0x%08X", got, want)
	}
}

func TestCalculateZoom_FineFactorAfterDivider(t *testing.T) {
	z := CalculateZoom(1000, 1000, 400, 400, false)

	if z.H.Divisor != 4 || z.H.Alignment != 7 {
		t.Fatalf("H divisor %d alignment %d, want 4 and 7", z.H.Divisor, z.H.Alignment)
	}
	// Horizontal zooms from two pixels short of the divider output.
	if want := uint32(248 * 2048 / 400); z.H.FineFactor != want {
		t.Fatalf("H fine factor %d, want %d", z.H.FineFactor, want)
	}
	if want := uint32(250 * 1024 / 400); z.V.FineFactor != want {
		t.Fatalf("V fine factor %d, want %d", z.V.FineFactor, want)
	}
	if want := uint32((400*2048 + 999) / 1000); z.H.MinifyRatio != want {
		t.Fatalf("H minify ratio %d, want %d", z.H.MinifyRatio, want)
	}

	ctl := z.zoomControl(false)
	if ctl&X_ZOOM_ENABLE == 0 || ctl&Y_ZOOM_ENABLE == 0 {
		t.Fatalf("zoom control 0x%08X: fine zoom not enabled", ctl)
	}
	if got := z.zoomControl(true); got != 0 {
		t.Fatalf("ratio zoom control 0x%08X, want 0", got)
	}
}

func TestMinifyLadder_PicksSmallestDivisor(t *testing.T) {
	for src := 2; src <= 2048; src += 37 {
		for dst := 1; dst < src; dst += 29 {
			d, reduced, clamped := minifyLadder(src, dst)
			if clamped {
				if d != 16 || src/16 <= dst {
					t.Fatalf("src %d dst %d: clamped at /%d, reduced %d", src, dst, d, reduced)
				}
				continue
			}
			if reduced > dst {
				t.Fatalf("src %d dst %d: /%d leaves %d", src, dst, d, reduced)
			}
			if d > 2 && src/(d/2) <= dst {
				t.Fatalf("src %d dst %d: /%d chosen but /%d fits", src, dst, d, d/2)
			}
		}
	}
}

func TestCalculateZoom_ClampsAtSixteen(t *testing.T) {
	z := CalculateZoom(2048, 1024, 64, 32, false)
	if !z.H.Clamped || z.H.Divisor != 16 || z.H.Taps != TAPS_8 {
		t.Fatalf("H: got %+v, want clamped /16 with 8 taps", z.H)
	}
	if !z.V.Clamped || z.V.Divisor != 16 {
		t.Fatalf("V: got %+v, want clamped /16", z.V)
	}
	if !z.TooSmall() {
		t.Fatal("both axes clamped but TooSmall is false")
	}

	one := CalculateZoom(2048, 480, 64, 240, false)
	if !one.H.Clamped || one.V.Clamped || one.TooSmall() {
		t.Fatalf("single clamped axis: got H=%+v V=%+v TooSmall=%v", one.H, one.V, one.TooSmall())
	}
}

func TestCalculateZoom_ZoomInRoundTrip(t *testing.T) {
	for src := 16; src <= 1024; src += 61 {
		for dst := src + 1; dst <= 2048; dst += 97 {
			t.Run(fmt.Sprintf("%d->%d", src, dst), func(t *testing.T) {
				h := horizontalZoom(src, dst)
				if h.Factor == 0 || h.Factor > X_ZOOM_MASK {
					t.Fatalf("H factor %d out of range", h.Factor)
				}
				back := int(h.Factor) * dst / ZOOM_H_ONE
				if back < src-1 || back > src {
					t.Fatalf("H factor %d recovers %d", h.Factor, back)
				}
			})
		}
	}
}

func TestCalculateZoom_PanelExpansionAddsLine(t *testing.T) {
	z := CalculateZoom(720, 480, 720, 480, true)
	if z.V.Mode != ZOOM_IN {
		t.Fatalf("V mode %v, want zoom-in for the extra panel line", z.V.Mode)
	}
	if want := uint32(480 * 1024 / 481); z.V.Factor != want {
		t.Fatalf("V factor %d, want %d", z.V.Factor, want)
	}
	if z.H.Mode != ZOOM_NONE {
		t.Fatalf("H mode %v, want none", z.H.Mode)
	}
}

func TestZoomParameters_HQVEncoding(t *testing.T) {
	z := CalculateZoom(2048, 1000, 200, 400, false)
	if z.H.Taps != TAPS_8 || z.V.Taps != TAPS_4 {
		t.Fatalf("taps H=%d V=%d", z.H.Taps, z.V.Taps)
	}
	if got := z.hqvFilter(); got != HQV_H_TAP8|HQV_V_TAP4 {
		t.Fatalf("filter 0x%08X", got)
	}

	legacy := z.hqvMinify(false)
	if legacy&HQV_H_MINIFY_DOWN != 0 {
		t.Fatalf("legacy minify 0x%08X uses ratio mode", legacy)
	}
	if legacy&0xF != log2Divisor(z.H.Divisor) {
		t.Fatalf("legacy minify 0x%08X, want divisor log2 %d", legacy, log2Divisor(z.H.Divisor))
	}

	ratio := z.hqvMinify(true)
	if ratio&HQV_MINIFY_RATIO != z.H.MinifyRatio {
		t.Fatalf("ratio minify 0x%08X, want H ratio %d", ratio, z.H.MinifyRatio)
	}
	if ratio>>HQV_V_MINIFY_SHIFT&HQV_MINIFY_RATIO != z.V.MinifyRatio {
		t.Fatalf("ratio minify 0x%08X, want V ratio %d", ratio, z.V.MinifyRatio)
	}
}
