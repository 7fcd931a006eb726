package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func newTestScenario(t *testing.T) (*ScenarioRunner, *testRig) {
	t.Helper()
	rig := newTestRig(t, "cle266-cx")
	r := NewScenarioRunner(context.Background(), rig.engine, rig.chip.SignalVSync, zerolog.Nop())
	t.Cleanup(r.Close)
	return r, rig
}

func TestScenario_CreateUpdateHide(t *testing.T) {
	r, rig := newTestScenario(t)
	require.NoError(t, r.RunString(`
		assert(overlay.create(1, "yv12", 320, 240))
		assert(overlay.update(1, {src={0,0,320,240}, dst={40,30,160,120}, key=0x0821}))
		overlay.vsync(2)
		regs = overlay.plan(1)
	`))

	rec, ok := rig.engine.Record(1)
	require.True(t, ok)
	assert.True(t, rec.Visible)
	assert.Equal(t, rect(40, 30, 160, 120), rec.Dst)
	assert.True(t, rec.Key.Enabled)
	assert.Equal(t, uint32(0x0821), rec.Key.Key)
	assert.NotZero(t, rig.chip.ActiveRegister(V1_CONTROL)&VIDEO_ENABLE)

	regs, ok := r.L.GetGlobal("regs").(*lua.LTable)
	require.True(t, ok)
	require.Greater(t, regs.Len(), 0)
	first := regs.RawGetInt(1).(*lua.LTable)
	assert.NotEmpty(t, lua.LVAsString(first.RawGetString("reg")))

	require.NoError(t, r.RunString(`
		assert(overlay.hide(1))
		overlay.vsync()
	`))
	rec, _ = rig.engine.Record(1)
	assert.False(t, rec.Visible)
	assert.Zero(t, rig.chip.ActiveRegister(V1_CONTROL)&VIDEO_ENABLE)

	require.NoError(t, r.RunString(`assert(overlay.destroy(1))`))
	_, ok = rig.engine.Record(1)
	assert.False(t, ok)
}

func TestScenario_PutPatternAndPriority(t *testing.T) {
	r, rig := newTestScenario(t)
	require.NoError(t, r.RunString(`
		assert(overlay.create(1, "RV16", 64, 48))
		assert(overlay.create(2, "YUY2", 64, 48))
		for i = 0, 2 do
			assert(overlay.put_pattern(1, i, {dst={0,0,128,96}}))
			assert(overlay.put_pattern(2, i, {dst={200,0,64,48}, flags="show,bob"}))
		end
		assert(overlay.priority("v3"))
		assert(overlay.pan(8, 0))
		overlay.log("done")
	`))

	one, _ := rig.engine.Record(1)
	two, _ := rig.engine.Record(2)
	assert.Equal(t, PIPE_PRIMARY, one.Pipeline)
	assert.Equal(t, PIPE_SECONDARY, two.Pipeline)
	assert.Equal(t, FLAG_SHOW|FLAG_BOB, two.Flags)
	assert.Equal(t, 8, rig.engine.Screen().PanX)
}

func TestScenario_ErrorsReturnNilAndMessage(t *testing.T) {
	r, _ := newTestScenario(t)
	require.NoError(t, r.RunString(`
		ok, msg = overlay.update(9, {})
		bad_fmt, fmt_msg = overlay.create(1, "ABCD", 64, 64)
		assert(overlay.create(1, "YUY2", 64, 64))
		bad_flag, flag_msg = overlay.update(1, {flags="sparkle"})
		bad_pipe, pipe_msg = overlay.priority("v2")
		no_plan, plan_msg = overlay.plan(1)
	`))

	for _, name := range []string{"ok", "bad_fmt", "bad_flag", "bad_pipe", "no_plan"} {
		assert.Equal(t, lua.LNil, r.L.GetGlobal(name), name)
	}
	assert.Contains(t, lua.LVAsString(r.L.GetGlobal("msg")), "unknown stream")
	assert.Contains(t, lua.LVAsString(r.L.GetGlobal("flag_msg")), "sparkle")
	assert.Contains(t, lua.LVAsString(r.L.GetGlobal("pipe_msg")), "v2")
	assert.Equal(t, "no plan", lua.LVAsString(r.L.GetGlobal("plan_msg")))

	// Lua errors surface from RunString.
	assert.Error(t, r.RunString(`overlay.create("x")`))
}

func TestParseFlags(t *testing.T) {
	f, err := parseFlags("show|weave bob")
	require.NoError(t, err)
	assert.Equal(t, FLAG_SHOW|FLAG_INTERLEAVED|FLAG_BOB, f)
	_, err = parseFlags("show,fast")
	assert.Error(t, err)
}
