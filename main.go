// main.go - Main entry point for the overlay engine tool

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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

func boilerPlate() {
	fmt.Println("IntuitionOverlay - video overlay engine for two-pipeline scalers")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

// overlayRig is everything built from a Config.
type overlayRig struct {
	cfg     Config
	engine  *OverlayEngine
	bus     *SystemBus
	chip    *OverlayChip
	closers []io.Closer
	log     zerolog.Logger
}

func (r *overlayRig) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
}

func buildRig(cfg Config, log zerolog.Logger) (*overlayRig, error) {
	rev, err := cfg.Revision()
	if err != nil {
		return nil, err
	}
	rig := &overlayRig{cfg: cfg, log: log}

	var dev OverlayDevice
	switch cfg.Device.Backend {
	case DEVICE_BACKEND_MMIO:
		mmio, err := OpenMMIODevice(cfg.Device.PCIAddress, cfg.Device.VRAMSize)
		if err != nil {
			return nil, err
		}
		rig.closers = append(rig.closers, mmio)
		dev = mmio
	default:
		rig.bus = NewSystemBus(cfg.Device.VRAMSize)
		rig.chip = NewOverlayChip(rig.bus, ChipConfig{
			Screen:          cfg.ScreenInfo(),
			FBOffset:        cfg.Device.FBOffset,
			TwoColorKeys:    rev.TwoColorKeys(),
			HQVByteFetch:    rev.HQVFetchByteUnit(),
			AutoRetirePolls: cfg.Device.AutoRetire,
		}, log.With().Str("module", "chip").Logger())
		dev = NewBusDevice(rig.bus)
	}

	strategy, err := ParseAllocStrategy(cfg.Allocator.Strategy)
	if err != nil {
		rig.Close()
		return nil, err
	}
	acfg := AllocatorConfig{
		Strategy:  strategy,
		Start:     alignUp(int(cfg.Device.FBOffset)+cfg.FBSize(), OVERLAY_SURFACE_ALIGN),
		End:       len(dev.VRAM()),
		Alignment: cfg.Allocator.Alignment,
		PoolSlots: cfg.Allocator.PoolSlots,
		SlotSize:  cfg.Allocator.SlotSize,
		DRMNode:   cfg.Allocator.DRMNode,
		Logger:    log.With().Str("module", "alloc").Logger(),
	}
	if acfg.SlotSize == 0 && acfg.PoolSlots > 0 {
		acfg.SlotSize = (acfg.End - acfg.Start) / acfg.PoolSlots
	}
	var drm DRMMemoryManager
	if strategy == ALLOC_DRM {
		m, err := OpenVIADRM(cfg.Allocator.DRMNode, cfg.Device.DRMContext)
		if err != nil {
			rig.Close()
			return nil, err
		}
		rig.closers = append(rig.closers, m)
		drm = m
	}
	alloc, err := NewSurfaceAllocator(acfg, drm)
	if err != nil {
		rig.Close()
		return nil, err
	}

	rig.engine, err = NewOverlayEngine(EngineOptions{
		Device:        dev,
		Revision:      rev,
		Allocator:     alloc,
		Screen:        cfg.ScreenInfo(),
		Poll:          cfg.PollLimits(),
		QueueCapacity: cfg.Queue.Capacity,
		QueueAssert:   cfg.Queue.Assert,
		Logger:        log,
	})
	if err != nil {
		rig.Close()
		return nil, err
	}
	log.Info().Str("device", fmt.Sprint(dev)).Str("revision", rev.Name()).
		Str("allocator", strategy.String()).Int("free", alloc.FreeBytes()).Msg("overlay engine ready")
	return rig, nil
}

// pan moves the viewport of the engine and, when emulated, of the chip.
func (r *overlayRig) pan(ctx context.Context, dx, dy int) {
	if err := r.engine.AdjustPanOffset(ctx, dx, dy); err != nil {
		r.log.Warn().Err(err).Msg("pan")
	}
	if r.chip != nil {
		s := r.engine.Screen()
		r.chip.SetPan(s.PanX, s.PanY)
	}
}

func (r *overlayRig) dump() string {
	return FormatRegisters(r.engine.RegisterDump())
}

// paintFramebuffer fills the emulated framebuffer with a dark background
// and, when key is set, the colour key inside dst.
func (r *overlayRig) paintFramebuffer(dst image.Rectangle, key *ColorKey) {
	if r.bus == nil {
		return
	}
	scr := r.cfg.ScreenInfo()
	bpp := fbBytesPerPixel(scr.Depth)
	pitch := scr.Width * bpp
	vram := r.bus.VRAM()
	base := int(r.cfg.Device.FBOffset)
	background := uint32(0x202020)
	switch scr.Depth {
	case 8:
		background = 0x20
	case 15:
		background = 0x1084
	case 16:
		background = 0x2104
	}
	for y := 0; y < scr.Height; y++ {
		for x := 0; x < scr.Width; x++ {
			v := background
			if key != nil && key.Enabled && image.Pt(x, y).In(dst) {
				v = key.Key
			}
			off := base + y*pitch + x*bpp
			if off+bpp > len(vram) {
				return
			}
			for i := 0; i < bpp; i++ {
				vram[off+i] = byte(v >> (8 * i))
			}
		}
	}
}

// frameSource yields frames for playback.
type frameSource interface {
	Next() (*Frame, error)
}

type patternSource struct {
	format FourCC
	w, h   int
	n      int
}

func (p *patternSource) Next() (*Frame, error) {
	f, err := GeneratePattern(p.format, p.w, p.h, p.n)
	p.n++
	return f, err
}

func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	return w, h, nil
}

type playback struct {
	src    frameSource
	stream StreamID
	dst    image.Rectangle
	flags  UpdateFlags
	key    *ColorKey
	frames int
	rate   time.Duration
}

func (p *playback) run(ctx context.Context, rig *overlayRig, stop <-chan struct{}) error {
	bar := progressbar.Default(int64(p.frames), "playing")
	defer bar.Finish()

	ticker := time.NewTicker(p.rate)
	defer ticker.Stop()

	for i := 0; p.frames < 0 || i < p.frames; i++ {
		frame, err := p.src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		src := image.Rect(0, 0, frame.Width, frame.Height)
		dst := p.dst
		if dst.Empty() {
			dst = src
		}
		if err := rig.engine.PutImage(ctx, p.stream, frame, src, dst, p.flags, p.key); err != nil {
			if errors.Is(err, ErrTooSmall) || errors.Is(err, ErrInvalidRect) {
				rig.log.Warn().Err(err).Int("frame", i).Msg("frame not shown")
			} else {
				return err
			}
		}
		_ = bar.Add(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func main() {
	var (
		configs     ConfigSources
		input       string
		pattern     string
		format      string
		dstSpec     string
		frames      int
		script      string
		interactive bool
		colorKey    string
		bob         bool
		priority    string
		showVersion bool
		features    bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Var(&configs, "config", "YAML config file, inline YAML or key=value (repeatable)")
	flagSet.StringVar(&input, "input", "", "YUV4MPEG2 file to play")
	flagSet.StringVar(&pattern, "pattern", "", "play a generated colour-bar pattern of WxH")
	flagSet.StringVar(&format, "format", "YV12", "pattern pixel format (YUY2 UYVY YV12 I420 RV15 RV16 RV32)")
	flagSet.StringVar(&dstSpec, "dst", "", "destination rectangle x,y,w,h (default: source size)")
	flagSet.IntVar(&frames, "frames", 0, "frames to play, 0 for the whole input or 300 for patterns")
	flagSet.StringVar(&script, "script", "", "Lua scenario to run instead of playback")
	flagSet.BoolVar(&interactive, "interactive", false, "pan the viewport with the arrow keys")
	flagSet.StringVar(&colorKey, "colorkey", "", "framebuffer colour key (hex), painted into the destination")
	flagSet.BoolVar(&bob, "bob", false, "bob-deinterlace the source")
	flagSet.StringVar(&priority, "top", "", "pipeline composed on top (v1 or v3)")
	flagSet.BoolVar(&showVersion, "version", false, "print the version")
	flagSet.BoolVar(&features, "features", false, "print compiled features")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./intuition_overlay [-config overlay.yaml] -input clip.y4m | -pattern 320x240 [-dst 0,0,640,480] | -script scenario.lua")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if showVersion {
		fmt.Println(Version)
		return
	}
	if features {
		printFeatures()
		return
	}
	boilerPlate()

	cfg, err := LoadConfig(configs)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	log := NewLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, log, runOptions{
		input: input, pattern: pattern, format: format, dst: dstSpec, frames: frames,
		script: script, interactive: interactive, colorKey: colorKey, bob: bob, top: priority,
	}); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Send()
		os.Exit(1)
	}
}

type runOptions struct {
	input, pattern, format, dst string
	frames                      int
	script                      string
	interactive                 bool
	colorKey                    string
	bob                         bool
	top                         string
}

func run(ctx context.Context, cfg Config, log zerolog.Logger, opts runOptions) error {
	rig, err := buildRig(cfg, log)
	if err != nil {
		return err
	}
	defer rig.Close()

	var dst image.Rectangle
	if opts.dst != "" {
		if dst, err = parseRect(opts.dst); err != nil {
			return err
		}
	}
	var key *ColorKey
	if opts.colorKey != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(opts.colorKey, "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("colorkey: %w", err)
		}
		key = &ColorKey{Enabled: true, Key: uint32(v)}
	}
	if opts.top != "" {
		top, err := ParsePipeline(opts.top)
		if err != nil {
			return err
		}
		rig.engine.SetCompositingPriority(top)
	}
	rig.paintFramebuffer(dst, key)

	stop := make(chan struct{})
	if rig.chip != nil {
		output, compositor, err := startPreview(rig, cfg)
		if err != nil {
			return err
		}
		defer compositor.Stop()
		defer output.Close()
		if w, ok := output.(interface{ Done() <-chan struct{} }); ok {
			go func() {
				<-w.Done()
				close(stop)
			}()
		}
	}

	if opts.interactive {
		host := NewPanHost(
			func(dx, dy int) { rig.pan(ctx, dx, dy) },
			func() { fmt.Fprint(os.Stderr, strings.ReplaceAll(rig.dump(), "\n", "\r\n")) },
		)
		host.Start()
		defer host.Stop()
		quit := stop
		stop = make(chan struct{})
		go func() {
			select {
			case <-host.Quit():
			case <-quit:
			}
			close(stop)
		}()
	}

	if opts.script != "" {
		var vsync func()
		if rig.chip != nil {
			vsync = rig.chip.SignalVSync
		}
		runner := NewScenarioRunner(ctx, rig.engine, vsync, log.With().Str("module", "script").Logger())
		defer runner.Close()
		if err := runner.RunFile(opts.script); err != nil {
			return err
		}
		if opts.interactive {
			select {
			case <-stop:
			case <-ctx.Done():
			}
		}
		return nil
	}

	pb := &playback{stream: 1, dst: dst, key: key, flags: FLAG_SHOW}
	if opts.bob {
		pb.flags |= FLAG_BOB
	}
	switch {
	case opts.input != "":
		f, err := os.Open(opts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		y4m, err := NewY4MReader(f)
		if err != nil {
			return err
		}
		pb.src = y4m
		pb.frames = -1
		pb.rate = time.Second * time.Duration(max(y4m.RateDen, 1)) / time.Duration(max(y4m.RateNum, 1))
	case opts.pattern != "":
		w, h, err := parseSize(opts.pattern)
		if err != nil {
			return err
		}
		format, err := ParseFourCC(strings.ToUpper(opts.format))
		if err != nil {
			return err
		}
		pb.src = &patternSource{format: format, w: w, h: h}
		pb.frames = 300
		pb.rate = time.Second / 30
	default:
		return errors.New("nothing to do: give -input, -pattern or -script")
	}
	if opts.frames > 0 {
		pb.frames = opts.frames
	}

	err = pb.run(ctx, rig, stop)
	if herr := rig.engine.StopStream(context.WithoutCancel(ctx), pb.stream); herr != nil {
		log.Warn().Err(herr).Msg("stop stream")
	}
	return err
}

// startPreview shows the emulated scan-out and drives its vertical blank.
func startPreview(rig *overlayRig, cfg Config) (VideoOutput, *VideoCompositor, error) {
	backend, err := ParseVideoBackend(cfg.Preview.Backend)
	if err != nil {
		return nil, nil, err
	}
	output, err := NewVideoOutput(backend)
	if err != nil {
		return nil, nil, err
	}
	w, h := rig.chip.GetDimensions()
	if err := output.SetDisplayConfig(DisplayConfig{
		Width:       w,
		Height:      h,
		Scale:       cfg.Preview.Scale,
		RefreshRate: COMPOSITOR_REFRESH_RATE,
		VSync:       true,
		Title:       cfg.Preview.Title,
	}); err != nil {
		return nil, nil, err
	}
	if in, ok := output.(InputCapable); ok {
		in.SetPanHandler(func(dx, dy int) { rig.pan(context.Background(), dx, dy) })
		in.SetDumpHandler(rig.dump)
	}

	compositor := NewVideoCompositor(output, w, h, rig.log.With().Str("module", "compositor").Logger())
	compositor.RegisterSource(rig.chip)
	if st, ok := output.(StatusCapable); ok {
		compositor.OnFrame(func(frame uint64) {
			if frame%15 != 0 {
				return
			}
			fires, flips, _ := rig.chip.Stats()
			s := rig.engine.Screen()
			st.SetStatus(fmt.Sprintf("%s  fires %d  hqv %d  pan %d,%d", rig.engine.Revision().Name(), fires, flips, s.PanX, s.PanY))
		})
	}
	if err := output.Start(); err != nil {
		return nil, nil, err
	}
	if err := compositor.Start(); err != nil {
		return nil, nil, err
	}
	return output, compositor, nil
}
