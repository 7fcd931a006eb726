// overlay_flip_test.go - Flip/sync controller tests

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct {
	pipe     Pipeline
	from, to FlipState
}

func newTestFlip(t *testing.T, rev string) (*FlipController, *fakeDevice, RevisionProfile) {
	t.Helper()
	r := mustRevision(t, rev)
	dev := newFakeDevice(0)
	fc := NewFlipController(dev, NewPipelineSelector(r), fastPoll, 0, true, zerolog.Nop())
	return fc, dev, r
}

func packedPlan(t *testing.T, rev RevisionProfile, pipe Pipeline) PlannedRegisters {
	t.Helper()
	req := planRequest(rev, FOURCC_YUY2, 720, 480, 640, 480)
	req.Pipeline = pipe
	p, err := PlanUpdate(req)
	require.NoError(t, err)
	return p
}

func hqvPlan(t *testing.T, rev RevisionProfile) PlannedRegisters {
	t.Helper()
	req := planRequest(rev, FOURCC_YV12, 720, 480, 640, 480)
	req.UseHQV = true
	req.HQVDst = []uint32{0x300000, 0x380000}
	req.HQVPitch = FOURCC_YUY2.MinPitch(720)
	p, err := PlanUpdate(req)
	require.NoError(t, err)
	require.True(t, p.HQV)
	return p
}

func TestFlipController_UpdateWalksStates(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	var seen []transition
	fc.SetObserver(func(pipe Pipeline, from, to FlipState) {
		seen = append(seen, transition{pipe, from, to})
	})

	plan := packedPlan(t, rev, PIPE_PRIMARY)
	require.NoError(t, fc.Update(context.Background(), 1, plan))

	assert.Equal(t, []transition{
		{PIPE_PRIMARY, FLIP_IDLE, FLIP_PLANNED},
		{PIPE_PRIMARY, FLIP_PLANNED, FLIP_FLUSHED},
		{PIPE_PRIMARY, FLIP_FLUSHED, FLIP_FIRED},
		{PIPE_PRIMARY, FLIP_FIRED, FLIP_RETIRED},
		{PIPE_PRIMARY, FLIP_RETIRED, FLIP_IDLE},
	}, seen)
	assert.Equal(t, FLIP_IDLE, fc.State(PIPE_PRIMARY))

	fires, _ := dev.counts()
	assert.Equal(t, 1, fires)
	assert.Equal(t, plan.Control, dev.reg(V1_CONTROL))

	// The fire write comes after every planned write.
	last := dev.writes[len(dev.writes)-1]
	assert.Equal(t, uint32(V_COMPOSE_MODE), last.Addr)
	assert.NotZero(t, last.Value&V1_COMMAND_FIRE)
	assert.Zero(t, last.Value&V3_COMMAND_FIRE)
}

func TestFlipController_SubmitWhilePlannedIsBusy(t *testing.T) {
	fc, _, rev := newTestFlip(t, "cle266-cx")
	plan := packedPlan(t, rev, PIPE_SECONDARY)
	require.NoError(t, fc.Submit(2, plan))
	assert.Equal(t, FLIP_PLANNED, fc.State(PIPE_SECONDARY))

	err := fc.Submit(2, plan)
	assert.ErrorIs(t, err, ErrPipelineBusy)

	// The other pipeline is independent.
	assert.NoError(t, fc.Submit(1, packedPlan(t, rev, PIPE_PRIMARY)))
}

func TestFlipController_FirstActivationFlipsHQVTwice(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	plan := hqvPlan(t, rev)

	require.NoError(t, fc.Update(context.Background(), 1, plan))
	_, flips := dev.counts()
	assert.Equal(t, 2, flips)

	require.NoError(t, fc.Update(context.Background(), 1, plan))
	_, flips = dev.counts()
	assert.Equal(t, 3, flips)

	fc.ForgetStream(1)
	require.NoError(t, fc.Update(context.Background(), 1, plan))
	_, flips = dev.counts()
	assert.Equal(t, 5, flips)
}

func TestFlipController_StalledFireTimesOut(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	plan := packedPlan(t, rev, PIPE_PRIMARY)
	ctx := context.Background()

	dev.setStall(true)
	require.NoError(t, fc.Update(ctx, 1, plan), "first fire has nothing to wait for")

	err := fc.Update(ctx, 1, plan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHardwareTimeout))
	var hte *HardwareTimeoutError
	require.True(t, errors.As(err, &hte))
	assert.Equal(t, uint32(V_COMPOSE_MODE), hte.Register)
	assert.Equal(t, FLIP_IDLE, fc.State(PIPE_PRIMARY), "timeout must leave the pipeline recoverable")

	dev.setStall(false)
	assert.NoError(t, fc.Update(ctx, 1, plan))
}

func TestFlipController_StalledHQVFlipTimesOut(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	dev.setStall(true)
	err := fc.Update(context.Background(), 1, hqvPlan(t, rev))
	var hte *HardwareTimeoutError
	require.True(t, errors.As(err, &hte), "got %v", err)
	assert.Equal(t, uint32(HQV_CONTROL), hte.Register)
	assert.Equal(t, FLIP_IDLE, fc.State(PIPE_PRIMARY))
}

func TestFlipController_HideClearsEnableAndFiresOnce(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	ctx := context.Background()
	require.NoError(t, fc.Update(ctx, 1, hqvPlan(t, rev)))
	require.NotZero(t, dev.reg(V1_CONTROL)&VIDEO_ENABLE)

	before, _ := dev.counts()
	require.NoError(t, fc.Hide(ctx, PIPE_PRIMARY, true))
	after, _ := dev.counts()

	assert.Equal(t, 1, after-before, "hide must fire exactly once")
	assert.Zero(t, dev.reg(V1_CONTROL)&VIDEO_ENABLE)
	assert.Zero(t, dev.reg(HQV_CONTROL)&HQV_ENABLE)
	ctl, pre := fifoRegisters(PIPE_PRIMARY, HideFIFO())
	assert.Equal(t, ctl, dev.reg(V1_FIFO_CONTROL))
	assert.Equal(t, pre, dev.reg(V1_PREFIFO_CONTROL))
	assert.Equal(t, FLIP_IDLE, fc.State(PIPE_PRIMARY))
}

func TestFlipController_HideFromPlanned(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	require.NoError(t, fc.Submit(1, packedPlan(t, rev, PIPE_SECONDARY)))

	require.NoError(t, fc.Hide(context.Background(), PIPE_SECONDARY, false))
	assert.Equal(t, FLIP_IDLE, fc.State(PIPE_SECONDARY))
	assert.Empty(t, dev.writesTo(V3_SOURCE_SIZE), "discarded plan reached the device")
	fires, _ := dev.counts()
	assert.Equal(t, 1, fires)
}

func TestFlipController_HideForcedPastStall(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	ctx := context.Background()
	dev.setStall(true)
	require.NoError(t, fc.Update(ctx, 1, packedPlan(t, rev, PIPE_PRIMARY)))

	err := fc.Hide(ctx, PIPE_PRIMARY, false)
	assert.ErrorIs(t, err, ErrHardwareTimeout)
	assert.Zero(t, dev.reg(V1_CONTROL)&VIDEO_ENABLE, "hide must still disable the pipeline")
	assert.Equal(t, FLIP_IDLE, fc.State(PIPE_PRIMARY))
}

func TestFlipController_FlipHQVSource(t *testing.T) {
	fc, dev, rev := newTestFlip(t, "cle266-cx")
	ctx := context.Background()
	require.NoError(t, fc.Update(ctx, 1, hqvPlan(t, rev)))
	_, before := dev.counts()

	require.NoError(t, fc.FlipHQVSource(ctx, 0x111000, 0x122000, 0x133000))
	_, after := dev.counts()
	assert.Equal(t, 1, after-before)
	assert.Equal(t, uint32(0x111000), dev.reg(HQV_SRC_STARTADDR_Y))
	assert.Equal(t, uint32(0x122000), dev.reg(HQV_SRC_STARTADDR_U))
	assert.Equal(t, uint32(0x133000), dev.reg(HQV_SRC_STARTADDR_V))
	assert.NotZero(t, dev.reg(HQV_CONTROL)&HQV_ENABLE)
}
