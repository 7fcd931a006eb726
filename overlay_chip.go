// overlay_chip.go - Emulated Overlay Hardware

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
overlay_chip.go - Emulated Overlay Hardware

OverlayChip sits on a SystemBus and behaves like the scaler the engine
programs:

	- registers are shadowed in bus memory and latched into the active
	  set when a fire retires, so scan-out only ever sees complete updates
	- V1/V3 fire bits in V_COMPOSE_MODE stay set until vertical blank
	  (SignalVSync) or, if configured, until the status has been read
	  AutoRetirePolls times
	- HQV_SW_FLIP raises HQV_FLIP_STATUS, which clears the same way
	- SetStall freezes both so timeout handling can be exercised

Scan-out lives in overlay_scanout.go.
*/

package main

import (
	"sync"

	"github.com/rs/zerolog"
)

const OVERLAY_CHIP_LAYER = 20

// ChipConfig describes the emulated scan-out and revision quirks.
type ChipConfig struct {
	Screen          ScreenInfo
	FBOffset        uint32 // framebuffer offset in VRAM
	FBPitch         int    // bytes per framebuffer line, 0 for tight
	TwoColorKeys    bool
	HQVByteFetch    bool
	AutoRetirePolls int // status reads before a fire retires, 0 waits for vsync
}

type OverlayChip struct {
	mutex sync.Mutex
	bus   *SystemBus
	base  uint32
	cfg   ChipConfig

	latched [OVERLAY_REG_COUNT]uint32

	pendingFire uint32
	fireReads   int
	hqvPending  bool
	hqvReads    int
	stall       bool

	fires    uint64
	hqvFlips uint64
	vsyncs   uint64

	frame   []byte
	enabled bool
	layer   int
	log     zerolog.Logger
}

func NewOverlayChip(bus *SystemBus, cfg ChipConfig, log zerolog.Logger) *OverlayChip {
	c := &OverlayChip{
		bus:     bus,
		base:    bus.MMIOBase(),
		cfg:     cfg,
		enabled: true,
		layer:   OVERLAY_CHIP_LAYER,
		log:     log,
	}
	c.frame = make([]byte, cfg.Screen.Width*cfg.Screen.Height*4)
	bus.Poke32(c.base+V_FB_STARTADDR, cfg.FBOffset)
	bus.MapIO(c.base+OVERLAY_REG_BASE, c.base+OVERLAY_REG_END, c.handleRead, c.handleWrite)
	return c
}

func latchIndex(reg uint32) int {
	return int(reg-OVERLAY_REG_BASE) / 4
}

func (c *OverlayChip) active(reg uint32) uint32 {
	return c.latched[latchIndex(reg)]
}

func (c *OverlayChip) handleWrite(addr uint32, value uint32) {
	reg := addr - c.base
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch reg {
	case V_COMPOSE_MODE:
		if fire := value & COMPOSE_FIRE_MASK; fire != 0 {
			c.pendingFire |= fire
			c.fireReads = 0
			c.fires++
		}
		c.bus.Poke32(addr, value&^COMPOSE_FIRE_MASK|c.pendingFire)
	case HQV_CONTROL:
		switch {
		case value&HQV_SW_FLIP != 0:
			c.hqvPending = true
			c.hqvReads = 0
			c.hqvFlips++
			c.bus.Poke32(addr, value&^HQV_SW_FLIP|HQV_FLIP_STATUS)
		case value&HQV_FLIP_STATUS == 0:
			c.hqvPending = false
		}
	}
}

func (c *OverlayChip) handleRead(addr uint32) uint32 {
	reg := addr - c.base
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch reg {
	case V_COMPOSE_MODE:
		if c.pendingFire != 0 && !c.stall && c.cfg.AutoRetirePolls > 0 {
			c.fireReads++
			if c.fireReads >= c.cfg.AutoRetirePolls {
				c.retireFire()
			}
		}
	case HQV_CONTROL:
		if c.hqvPending && !c.stall && c.cfg.AutoRetirePolls > 0 {
			c.hqvReads++
			if c.hqvReads >= c.cfg.AutoRetirePolls {
				c.completeHQVFlip()
			}
		}
	}
	return c.bus.Peek32(addr)
}

// retireFire latches the shadow registers and clears the fire bits.
func (c *OverlayChip) retireFire() {
	for i := range c.latched {
		c.latched[i] = c.bus.Peek32(c.base + OVERLAY_REG_BASE + uint32(i)*4)
	}
	c.pendingFire = 0
	addr := c.base + V_COMPOSE_MODE
	v := c.bus.Peek32(addr) &^ COMPOSE_FIRE_MASK
	c.bus.Poke32(addr, v)
	c.latched[latchIndex(V_COMPOSE_MODE)] = v
}

// completeHQVFlip latches the HQV registers and clears the flip status.
func (c *OverlayChip) completeHQVFlip() {
	c.hqvPending = false
	addr := c.base + HQV_CONTROL
	v := c.bus.Peek32(addr) &^ HQV_FLIP_STATUS
	c.bus.Poke32(addr, v)
	for reg := uint32(HQV_CONTROL); reg <= HQV_DST_STARTADDR2; reg += 4 {
		c.latched[latchIndex(reg)] = c.bus.Peek32(c.base + reg)
	}
}

// SetStall stops fire and flip retirement while on.
func (c *OverlayChip) SetStall(stall bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stall = stall
}

// SetPan moves the scanned-out viewport within the framebuffer.
func (c *OverlayChip) SetPan(x, y int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cfg.Screen.PanX = x
	c.cfg.Screen.PanY = y
}

// Stats returns fire, HQV flip and vsync counts.
func (c *OverlayChip) Stats() (fires, hqvFlips, vsyncs uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.fires, c.hqvFlips, c.vsyncs
}

// ActiveRegister returns the latched value the scan-out uses.
func (c *OverlayChip) ActiveRegister(reg uint32) uint32 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if reg < OVERLAY_REG_BASE || reg > OVERLAY_REG_END {
		return 0
	}
	return c.active(reg)
}

// VideoSource interface implementation

// SignalVSync retires pending fires and flips, then renders the frame.
func (c *OverlayChip) SignalVSync() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.vsyncs++
	if c.stall {
		return
	}
	if c.pendingFire != 0 {
		c.retireFire()
	}
	if c.hqvPending {
		c.completeHQVFlip()
	}
}

// GetFrame renders the scan-out of the latched state.
func (c *OverlayChip) GetFrame() []byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.enabled {
		return nil
	}
	c.renderLocked()
	return c.frame
}

func (c *OverlayChip) IsEnabled() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.enabled
}

func (c *OverlayChip) SetEnabled(enabled bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.enabled = enabled
}

func (c *OverlayChip) GetLayer() int {
	return c.layer
}

func (c *OverlayChip) GetDimensions() (int, int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cfg.Screen.Width, c.cfg.Screen.Height
}
