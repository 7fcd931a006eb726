// overlay_flip.go - Overlay Flip/Sync Controller

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
overlay_flip.go - Flip/Sync Controller

Each pipeline runs the same cycle:

	Idle -> Planned -> Flushed -> Fired -> Retired -> Idle

Submit queues a plan (Planned). Commit waits for the previous fire of the
pipeline to clear, flushes the queue (Flushed), sets the fire bit in
V_COMPOSE_MODE (Fired) and, when the HQV is interposed, performs the HQV
software flip and waits for its status to clear (Retired). A stream's first
activation flips the HQV twice so both destination buffers hold valid data.

Every wait is bounded. A timeout returns HardwareTimeoutError and leaves the
pipeline Idle with its queue discarded, so the next update starts clean.
*/

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// FlipState is the position of a pipeline in the update cycle.
type FlipState int

const (
	FLIP_IDLE FlipState = iota
	FLIP_PLANNED
	FLIP_FLUSHED
	FLIP_FIRED
	FLIP_RETIRED
)

func (s FlipState) String() string {
	switch s {
	case FLIP_IDLE:
		return "idle"
	case FLIP_PLANNED:
		return "planned"
	case FLIP_FLUSHED:
		return "flushed"
	case FLIP_FIRED:
		return "fired"
	case FLIP_RETIRED:
		return "retired"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FlipObserver is told about every state transition.
type FlipObserver func(pipe Pipeline, from, to FlipState)

type flipSlot struct {
	state  FlipState
	queue  *RegisterQueue
	plan   PlannedRegisters
	stream StreamID
}

type FlipController struct {
	mu        sync.Mutex
	dev       RegisterIO
	sel       *PipelineSelector
	limits    PollLimits
	slots     [2]flipSlot
	activated map[StreamID]bool
	observer  FlipObserver
	log       zerolog.Logger
}

func NewFlipController(dev RegisterIO, sel *PipelineSelector, limits PollLimits, queueCap int, assert bool, log zerolog.Logger) *FlipController {
	fc := &FlipController{
		dev:       dev,
		sel:       sel,
		limits:    limits,
		activated: make(map[StreamID]bool),
		log:       log,
	}
	for i := range fc.slots {
		fc.slots[i].queue = NewRegisterQueue(queueCap, assert, log)
	}
	return fc
}

// SetObserver installs fn as the transition hook. nil removes it.
func (fc *FlipController) SetObserver(fn FlipObserver) {
	fc.mu.Lock()
	fc.observer = fn
	fc.mu.Unlock()
}

func (fc *FlipController) State(pipe Pipeline) FlipState {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.slots[pipe].state
}

func (fc *FlipController) transition(pipe Pipeline, to FlipState) {
	from := fc.slots[pipe].state
	fc.slots[pipe].state = to
	if fc.observer != nil {
		fc.observer(pipe, from, to)
	}
}

// Submit queues plan for the stream's pipeline. Only one unfired update may
// be outstanding per pipeline.
func (fc *FlipController) Submit(stream StreamID, plan PlannedRegisters) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	slot := &fc.slots[plan.Pipeline]
	if slot.state != FLIP_IDLE {
		return fmt.Errorf("submit on %s pipeline in state %s: %w", plan.Pipeline, slot.state, ErrPipelineBusy)
	}
	slot.queue.Reset()
	slot.queue.AppendAll(plan.Writes())
	slot.plan = plan
	slot.stream = stream
	fc.transition(plan.Pipeline, FLIP_PLANNED)
	return nil
}

// Commit runs the planned update of pipe through to Idle.
func (fc *FlipController) Commit(ctx context.Context, pipe Pipeline) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	slot := &fc.slots[pipe]
	if slot.state != FLIP_PLANNED {
		return fmt.Errorf("commit on %s pipeline in state %s", pipe, slot.state)
	}

	if err := waitClear(ctx, fc.dev, fc.limits, "wait fire", V_COMPOSE_MODE, pipe.fireBit()); err != nil {
		fc.abort(pipe, err)
		return err
	}
	n := slot.queue.Flush(fc.dev)
	fc.log.Debug().Str("pipe", pipe.String()).Int("writes", n).Msg("[flip] flushed")
	fc.transition(pipe, FLIP_FLUSHED)

	fc.sel.SetSelect(pipe, slot.plan.ComposeBits)
	fc.dev.Write32(V_COMPOSE_MODE, fc.sel.Compose()|pipe.fireBit())
	fc.transition(pipe, FLIP_FIRED)

	if slot.plan.HQV {
		flips := 1
		if !fc.activated[slot.stream] {
			flips = 2
		}
		for i := 0; i < flips; i++ {
			if err := fc.flipHQV(ctx, slot.plan.HQVControl); err != nil {
				fc.abort(pipe, err)
				return err
			}
		}
	}
	fc.activated[slot.stream] = true
	fc.transition(pipe, FLIP_RETIRED)
	fc.transition(pipe, FLIP_IDLE)
	return nil
}

// Update is Submit followed by Commit.
func (fc *FlipController) Update(ctx context.Context, stream StreamID, plan PlannedRegisters) error {
	if err := fc.Submit(stream, plan); err != nil {
		return err
	}
	return fc.Commit(ctx, plan.Pipeline)
}

func (fc *FlipController) flipHQV(ctx context.Context, ctl uint32) error {
	fc.dev.Write32(HQV_CONTROL, ctl&^HQV_FLIP_STATUS|HQV_SW_FLIP)
	return waitClear(ctx, fc.dev, fc.limits, "hqv flip", HQV_CONTROL, HQV_FLIP_STATUS)
}

func (fc *FlipController) abort(pipe Pipeline, err error) {
	fc.log.Error().Err(err).Str("pipe", pipe.String()).Msg("[flip] update abandoned")
	fc.slots[pipe].queue.Reset()
	fc.transition(pipe, FLIP_IDLE)
}

// Hide stops scan-out of pipe from any state: pipeline enable off, HQV
// disabled when held, FIFO back to the conservative entry, one fire.
func (fc *FlipController) Hide(ctx context.Context, pipe Pipeline, hqvHeld bool) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.slots[pipe].queue.Reset()
	werr := waitClear(ctx, fc.dev, fc.limits, "hide wait fire", V_COMPOSE_MODE, pipe.fireBit())

	ctlReg := pipe.controlReg()
	fc.dev.Write32(ctlReg, fc.dev.Read32(ctlReg)&^VIDEO_ENABLE)
	if hqvHeld {
		fc.dev.Write32(HQV_CONTROL, fc.dev.Read32(HQV_CONTROL)&^(HQV_ENABLE|HQV_SW_FLIP|HQV_FLIP_STATUS))
	}
	for _, w := range fifoWrites(pipe, HideFIFO()) {
		fc.dev.Write32(w.Addr, w.Value)
	}
	fc.sel.SetSelect(pipe, 0)
	fc.dev.Write32(V_COMPOSE_MODE, fc.sel.Compose()|pipe.fireBit())

	if fc.slots[pipe].state != FLIP_IDLE {
		fc.transition(pipe, FLIP_IDLE)
	}
	if werr != nil {
		fc.log.Warn().Err(werr).Str("pipe", pipe.String()).Msg("[flip] hide forced past pending fire")
	}
	return werr
}

// FlipHQVSource points the HQV at a new source frame and flips.
func (fc *FlipController) FlipHQVSource(ctx context.Context, y, u, v uint32) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if err := waitClear(ctx, fc.dev, fc.limits, "hqv source wait", HQV_CONTROL, HQV_FLIP_STATUS); err != nil {
		return err
	}
	fc.dev.Write32(HQV_SRC_STARTADDR_Y, y)
	fc.dev.Write32(HQV_SRC_STARTADDR_U, u)
	fc.dev.Write32(HQV_SRC_STARTADDR_V, v)
	return fc.flipHQV(ctx, fc.dev.Read32(HQV_CONTROL))
}

// ForgetStream clears the first-activation record of stream.
func (fc *FlipController) ForgetStream(stream StreamID) {
	fc.mu.Lock()
	delete(fc.activated, stream)
	fc.mu.Unlock()
}
