package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChip(t *testing.T, cfg ChipConfig) (*OverlayChip, *BusDevice, *SystemBus) {
	t.Helper()
	if cfg.Screen.Width == 0 {
		cfg.Screen = ScreenInfo{Width: 64, Height: 48, Depth: 32}
	}
	bus := NewSystemBus(256 * 1024)
	chip := NewOverlayChip(bus, cfg, zerolog.Nop())
	return chip, NewBusDevice(bus), bus
}

func TestOverlayChip_LatchesOnVSync(t *testing.T) {
	chip, dev, _ := newTestChip(t, ChipConfig{})

	dev.Write32(V1_CONTROL, VIDEO_ENABLE)
	dev.Write32(V_COMPOSE_MODE, ALWAYS_SELECT_VIDEO|V1_COMMAND_FIRE)
	assert.Zero(t, chip.ActiveRegister(V1_CONTROL))
	assert.NotZero(t, dev.Read32(V_COMPOSE_MODE)&V1_COMMAND_FIRE, "fire pending until vsync")

	chip.SignalVSync()
	assert.Equal(t, uint32(VIDEO_ENABLE), chip.ActiveRegister(V1_CONTROL))
	assert.Zero(t, dev.Read32(V_COMPOSE_MODE)&COMPOSE_FIRE_MASK)
	assert.Equal(t, uint32(ALWAYS_SELECT_VIDEO), chip.ActiveRegister(V_COMPOSE_MODE))

	// Shadow writes without a fire are not latched.
	dev.Write32(V1_CONTROL, 0)
	chip.SignalVSync()
	assert.Equal(t, uint32(VIDEO_ENABLE), chip.ActiveRegister(V1_CONTROL))

	fires, _, vsyncs := chip.Stats()
	assert.Equal(t, uint64(1), fires)
	assert.Equal(t, uint64(2), vsyncs)
}

func TestOverlayChip_AutoRetireAfterReads(t *testing.T) {
	chip, dev, _ := newTestChip(t, ChipConfig{AutoRetirePolls: 3})

	dev.Write32(V3_CONTROL, VIDEO_ENABLE)
	dev.Write32(V_COMPOSE_MODE, V3_COMMAND_FIRE)
	assert.NotZero(t, dev.Read32(V_COMPOSE_MODE)&V3_COMMAND_FIRE)
	assert.NotZero(t, dev.Read32(V_COMPOSE_MODE)&V3_COMMAND_FIRE)
	assert.Zero(t, dev.Read32(V_COMPOSE_MODE)&V3_COMMAND_FIRE, "third read retires")
	assert.Equal(t, uint32(VIDEO_ENABLE), chip.ActiveRegister(V3_CONTROL))
}

func TestOverlayChip_StallHoldsFireAndFlip(t *testing.T) {
	chip, dev, _ := newTestChip(t, ChipConfig{AutoRetirePolls: 1})
	chip.SetStall(true)

	dev.Write32(V_COMPOSE_MODE, V1_COMMAND_FIRE)
	dev.Write32(HQV_CONTROL, HQV_ENABLE|HQV_SW_FLIP)
	for i := 0; i < 5; i++ {
		dev.Read32(V_COMPOSE_MODE)
		dev.Read32(HQV_CONTROL)
	}
	chip.SignalVSync()
	assert.NotZero(t, dev.Read32(V_COMPOSE_MODE)&V1_COMMAND_FIRE)
	assert.NotZero(t, dev.Read32(HQV_CONTROL)&HQV_FLIP_STATUS)

	chip.SetStall(false)
	assert.Zero(t, dev.Read32(V_COMPOSE_MODE)&V1_COMMAND_FIRE)
	assert.Zero(t, dev.Read32(HQV_CONTROL)&HQV_FLIP_STATUS)
}

func TestOverlayChip_HQVFlipRaisesStatus(t *testing.T) {
	chip, dev, _ := newTestChip(t, ChipConfig{})

	dev.Write32(HQV_SRC_STARTADDR_Y, 0x4000)
	dev.Write32(HQV_CONTROL, HQV_ENABLE|HQV_YUV422|HQV_SW_FLIP)
	ctl := dev.Read32(HQV_CONTROL)
	assert.NotZero(t, ctl&HQV_FLIP_STATUS)
	assert.Zero(t, ctl&HQV_SW_FLIP)

	chip.SignalVSync()
	assert.Zero(t, dev.Read32(HQV_CONTROL)&HQV_FLIP_STATUS)
	assert.Equal(t, uint32(0x4000), chip.ActiveRegister(HQV_SRC_STARTADDR_Y))
	_, flips, _ := chip.Stats()
	assert.Equal(t, uint64(1), flips)
}

func TestOverlayChip_VideoSource(t *testing.T) {
	chip, _, _ := newTestChip(t, ChipConfig{})
	w, h := chip.GetDimensions()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
	assert.Equal(t, OVERLAY_CHIP_LAYER, chip.GetLayer())

	frame := chip.GetFrame()
	require.Len(t, frame, 64*48*4)

	chip.SetEnabled(false)
	assert.False(t, chip.IsEnabled())
	assert.Nil(t, chip.GetFrame())
	assert.Zero(t, chip.ActiveRegister(0x100), "outside the register block")
}
