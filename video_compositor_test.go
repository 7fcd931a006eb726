// video_compositor_test.go - Tests and benchmarks for video compositor

package main

import (
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidSource is a fixed-colour VideoSource.
type solidSource struct {
	w, h    int
	layer   int
	px      [4]byte
	enabled bool
	vsyncs  int
}

func (s *solidSource) GetFrame() []byte {
	frame := make([]byte, s.w*s.h*4)
	for i := 0; i < len(frame); i += 4 {
		copy(frame[i:], s.px[:])
	}
	return frame
}
func (s *solidSource) IsEnabled() bool           { return s.enabled }
func (s *solidSource) GetLayer() int             { return s.layer }
func (s *solidSource) GetDimensions() (int, int) { return s.w, s.h }
func (s *solidSource) SignalVSync()              { s.vsyncs++ }

func TestCompositor_LayerOrder(t *testing.T) {
	out := NewHeadlessVideoOutput()
	require.NoError(t, out.Start())
	c := NewVideoCompositor(out, 8, 8, zerolog.Nop())

	top := &solidSource{w: 8, h: 8, layer: 30, px: [4]byte{0, 0xFF, 0, 0xFF}, enabled: true}
	bottom := &solidSource{w: 4, h: 4, layer: 10, px: [4]byte{0xFF, 0, 0, 0xFF}, enabled: true}
	c.RegisterSource(top)
	c.RegisterSource(bottom)

	frame := c.Composite()
	assert.Equal(t, []byte{0, 0xFF, 0, 0xFF}, frame[:4], "higher layer drawn last")
	assert.Equal(t, 1, top.vsyncs)
	assert.Equal(t, 1, bottom.vsyncs)
	assert.Equal(t, uint64(1), out.GetFrameCount())

	top.enabled = false
	frame = c.Composite()
	assert.Equal(t, []byte{0xFF, 0, 0, 0xFF}, frame[(7*8+7)*4:(7*8+7)*4+4], "small source scaled to fill")
	assert.Equal(t, 1, top.vsyncs, "disabled sources get no vsync")
}

func TestCompositor_TransparentKeepsLayerBelow(t *testing.T) {
	c := NewVideoCompositor(nil, 4, 4, zerolog.Nop())
	c.RegisterSource(&solidSource{w: 4, h: 4, layer: 1, px: [4]byte{0, 0, 0xFF, 0xFF}, enabled: true})
	c.RegisterSource(&solidSource{w: 4, h: 4, layer: 2, enabled: true})
	frame := c.Composite()
	assert.Equal(t, []byte{0, 0, 0xFF, 0xFF}, frame[:4])
}

func TestCompositor_DrivesOverlayChip(t *testing.T) {
	rig := newTestRig(t, "cle266-cx")
	out := NewHeadlessVideoOutput()
	require.NoError(t, out.Start())
	c := NewVideoCompositor(out, testScreen.Width, testScreen.Height, zerolog.Nop())
	c.RegisterSource(rig.chip)

	var seen []uint64
	c.OnFrame(func(n uint64) { seen = append(seen, n) })

	// Pipeline programmed directly: an RV32 red square at (16,16).
	vram := rig.bus.VRAM()
	const src = 0x200000
	for i := 0; i < 16*16; i++ {
		binary.LittleEndian.PutUint32(vram[src+i*4:], 0x00FF0000)
	}
	dev := NewBusDevice(rig.bus)
	dev.Write32(V1_STARTADDR_0, src)
	dev.Write32(V1_STRIDE, 64)
	dev.Write32(V1_SOURCE_SIZE, 15<<16|15)
	dev.Write32(V1_WIN_START_Y_X, 16<<16|16)
	dev.Write32(V1_WIN_END_Y_X, 31<<16|31)
	dev.Write32(V1_CONTROL, VIDEO_ENABLE|VIDEO_FMT_RGB32)
	dev.Write32(V_COMPOSE_MODE, ALWAYS_SELECT_VIDEO|V1_COMMAND_FIRE)

	frame := c.Composite()
	i := (20*testScreen.Width + 20) * 4
	assert.Equal(t, []byte{0xFF, 0, 0, 0xFF}, frame[i:i+4], "fire latched by the compositor vsync")
	c.Composite()
	assert.Equal(t, []uint64{1, 2}, seen)

	last := out.LastFrame()
	require.Len(t, last, testScreen.Width*testScreen.Height*4)
	assert.Equal(t, byte(0xFF), last[i])
}

func TestCompositor_SetDimensions(t *testing.T) {
	c := NewVideoCompositor(nil, 4, 4, zerolog.Nop())
	c.RegisterSource(&solidSource{w: 2, h: 2, px: [4]byte{1, 2, 3, 0xFF}, enabled: true})
	assert.Len(t, c.Composite(), 4*4*4)
	c.SetDimensions(6, 2)
	assert.Len(t, c.Composite(), 6*2*4)
}

func TestCompositor_StartStop(t *testing.T) {
	c := NewVideoCompositor(nil, 2, 2, zerolog.Nop())
	require.NoError(t, c.Start())
	c.Stop()
	c.Stop()
}

// BenchmarkCompositor_Frame measures one full 640x480 composition.
func BenchmarkCompositor_Frame(b *testing.B) {
	c := NewVideoCompositor(nil, 640, 480, zerolog.Nop())
	c.RegisterSource(&solidSource{w: 640, h: 480, px: [4]byte{1, 2, 3, 0xFF}, enabled: true})
	c.RegisterSource(&solidSource{w: 320, h: 240, layer: 5, px: [4]byte{4, 5, 6, 0x80}, enabled: true})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Composite()
	}
}
