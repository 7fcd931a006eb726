/*
overlay_script.go - Lua scenario scripts

A scenario drives an engine through a fixed sequence of calls, which is how
the tool reproduces geometry problems without a video player. Every
function lives in the global "overlay" table; calls that can fail return
true on success or nil plus an error string.

	overlay.create(stream, "YV12", w, h)
	overlay.update(stream, {src={x,y,w,h}, dst={x,y,w,h}, flags="show,bob",
	               key=0x0821, chroma_low=0, chroma_high=0x1F1F1F})
	overlay.hide(stream)
	overlay.destroy(stream)
	overlay.pan(dx, dy)
	overlay.priority("v3")
	overlay.put_pattern(stream, frame, {dst={x,y,w,h}})
	overlay.plan(stream)     -> {{reg="V1_CONTROL", addr=0x..., value=0x...}, ...}
	overlay.vsync([n])
	overlay.log(message)
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// ScenarioRunner binds an engine to a Lua state.
type ScenarioRunner struct {
	L      *lua.LState
	ctx    context.Context
	engine *OverlayEngine
	vsync  func()
	log    zerolog.Logger
}

// NewScenarioRunner creates the Lua state. vsync, when non-nil, is called
// by overlay.vsync and between frames of put_pattern sequences.
func NewScenarioRunner(ctx context.Context, engine *OverlayEngine, vsync func(), log zerolog.Logger) *ScenarioRunner {
	r := &ScenarioRunner{
		L:      lua.NewState(),
		ctx:    ctx,
		engine: engine,
		vsync:  vsync,
		log:    log,
	}
	r.L.SetContext(ctx)
	r.register()
	return r
}

func (r *ScenarioRunner) Close() {
	r.L.Close()
}

// RunFile executes a scenario file.
func (r *ScenarioRunner) RunFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("scenario %s: %w", path, err)
	}
	return nil
}

// RunString executes scenario source.
func (r *ScenarioRunner) RunString(src string) error {
	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	return nil
}

func (r *ScenarioRunner) register() {
	fns := map[string]lua.LGFunction{
		"create":      r.luaCreate,
		"update":      r.luaUpdate,
		"hide":        r.luaHide,
		"destroy":     r.luaDestroy,
		"pan":         r.luaPan,
		"priority":    r.luaPriority,
		"put_pattern": r.luaPutPattern,
		"plan":        r.luaPlan,
		"vsync":       r.luaVSync,
		"log":         r.luaLog,
	}
	tbl := r.L.NewTable()
	r.L.SetFuncs(tbl, fns)
	r.L.SetGlobal("overlay", tbl)
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func checkStream(L *lua.LState, n int) StreamID {
	return StreamID(L.CheckInt(n))
}

func (r *ScenarioRunner) luaCreate(L *lua.LState) int {
	stream := checkStream(L, 1)
	format, err := ParseFourCC(strings.ToUpper(L.CheckString(2)))
	if err != nil {
		return pushResult(L, err)
	}
	w, h := L.CheckInt(3), L.CheckInt(4)
	_, err = r.engine.CreateSurface(stream, format, w, h)
	return pushResult(L, err)
}

// rectField reads {x, y, w, h} from field name of tbl. A missing field
// yields fallback.
func rectField(L *lua.LState, tbl *lua.LTable, name string, fallback image.Rectangle) image.Rectangle {
	v, ok := tbl.RawGetString(name).(*lua.LTable)
	if !ok {
		return fallback
	}
	get := func(i int) int {
		n, _ := v.RawGetInt(i).(lua.LNumber)
		return int(n)
	}
	x, y, w, h := get(1), get(2), get(3), get(4)
	return image.Rect(x, y, x+w, y+h)
}

func parseFlags(s string) (UpdateFlags, error) {
	var flags UpdateFlags
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' || r == ' ' }) {
		switch strings.ToLower(f) {
		case "show":
			flags |= FLAG_SHOW
		case "hide":
			flags |= FLAG_HIDE
		case "interleaved", "weave":
			flags |= FLAG_INTERLEAVED
		case "bob":
			flags |= FLAG_BOB
		default:
			return 0, fmt.Errorf("unknown flag %q", f)
		}
	}
	return flags, nil
}

// updateArgs decodes the geometry table shared by update and put_pattern.
func (r *ScenarioRunner) updateArgs(L *lua.LState, stream StreamID, tbl *lua.LTable) (src, dst image.Rectangle, flags UpdateFlags, key *ColorKey, err error) {
	rec, ok := r.engine.Record(stream)
	if !ok {
		return src, dst, 0, nil, fmt.Errorf("stream %d: %w", stream, ErrStreamUnknown)
	}
	full := image.Rect(0, 0, rec.OrigWidth, rec.OrigHeight)
	src = rectField(L, tbl, "src", full)
	dst = rectField(L, tbl, "dst", full)

	flags = FLAG_SHOW
	if s, ok := tbl.RawGetString("flags").(lua.LString); ok {
		if flags, err = parseFlags(string(s)); err != nil {
			return
		}
	}
	if v, ok := tbl.RawGetString("key").(lua.LNumber); ok {
		key = &ColorKey{Enabled: true, Key: uint32(v)}
	}
	low, okLow := tbl.RawGetString("chroma_low").(lua.LNumber)
	high, okHigh := tbl.RawGetString("chroma_high").(lua.LNumber)
	if okLow && okHigh {
		if key == nil {
			key = &ColorKey{}
		}
		key.ChromaEnabled = true
		key.ChromaLow = uint32(low)
		key.ChromaHigh = uint32(high)
	}
	return
}

func (r *ScenarioRunner) luaUpdate(L *lua.LState) int {
	stream := checkStream(L, 1)
	src, dst, flags, key, err := r.updateArgs(L, stream, L.OptTable(2, L.NewTable()))
	if err != nil {
		return pushResult(L, err)
	}
	return pushResult(L, r.engine.UpdateOverlay(r.ctx, stream, src, dst, flags, key))
}

func (r *ScenarioRunner) luaHide(L *lua.LState) int {
	stream := checkStream(L, 1)
	rec, ok := r.engine.Record(stream)
	if !ok {
		return pushResult(L, fmt.Errorf("stream %d: %w", stream, ErrStreamUnknown))
	}
	return pushResult(L, r.engine.UpdateOverlay(r.ctx, stream, rec.Src, rec.Dst, FLAG_HIDE, nil))
}

func (r *ScenarioRunner) luaDestroy(L *lua.LState) int {
	return pushResult(L, r.engine.StopStream(r.ctx, checkStream(L, 1)))
}

func (r *ScenarioRunner) luaPan(L *lua.LState) int {
	return pushResult(L, r.engine.AdjustPanOffset(r.ctx, L.CheckInt(1), L.CheckInt(2)))
}

func (r *ScenarioRunner) luaPriority(L *lua.LState) int {
	pipe, err := ParsePipeline(L.CheckString(1))
	if err != nil {
		return pushResult(L, err)
	}
	r.engine.SetCompositingPriority(pipe)
	return pushResult(L, nil)
}

func (r *ScenarioRunner) luaPutPattern(L *lua.LState) int {
	stream := checkStream(L, 1)
	n := L.CheckInt(2)
	rec, ok := r.engine.Record(stream)
	if !ok {
		return pushResult(L, fmt.Errorf("stream %d: %w", stream, ErrStreamUnknown))
	}
	frame, err := GeneratePattern(rec.Format, rec.OrigWidth, rec.OrigHeight, n)
	if err != nil {
		return pushResult(L, err)
	}
	src, dst, flags, key, err := r.updateArgs(L, stream, L.OptTable(3, L.NewTable()))
	if err != nil {
		return pushResult(L, err)
	}
	return pushResult(L, r.engine.PutImage(r.ctx, stream, frame, src, dst, flags, key))
}

func (r *ScenarioRunner) luaPlan(L *lua.LState) int {
	stream := checkStream(L, 1)
	plan, ok := r.engine.LastPlan(stream)
	if !ok {
		return pushResult(L, errors.New("no plan"))
	}
	out := L.NewTable()
	for _, w := range plan.Writes() {
		row := L.NewTable()
		row.RawSetString("reg", lua.LString(RegisterName(w.Addr)))
		row.RawSetString("addr", lua.LNumber(w.Addr))
		row.RawSetString("value", lua.LNumber(w.Value))
		out.Append(row)
	}
	L.Push(out)
	return 1
}

func (r *ScenarioRunner) luaVSync(L *lua.LState) int {
	n := L.OptInt(1, 1)
	if r.vsync != nil {
		for range n {
			r.vsync()
		}
	}
	return 0
}

func (r *ScenarioRunner) luaLog(L *lua.LState) int {
	r.log.Info().Msg(L.CheckString(1))
	return 0
}
