// overlay_config.go - YAML configuration

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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DEVICE_BACKEND_EMULATED = "emulated"
	DEVICE_BACKEND_MMIO     = "mmio"
)

type DeviceConfig struct {
	Backend      string `yaml:"backend"`
	PCIAddress   string `yaml:"pci_address"`
	Revision     string `yaml:"revision"`
	VRAMSize     int    `yaml:"vram_size"`
	FBOffset     uint32 `yaml:"fb_offset"`
	AutoRetire   int    `yaml:"auto_retire_polls"`
	DRMContext   uint32 `yaml:"drm_context"`
	ExtendedFIFO bool   `yaml:"extended_fifo"`
}

type ScreenConfig struct {
	Width          int  `yaml:"width"`
	Height         int  `yaml:"height"`
	Depth          int  `yaml:"depth"`
	PanelExpansion bool `yaml:"panel_expansion"`
}

type AllocConfig struct {
	Strategy  string `yaml:"strategy"`
	Alignment int    `yaml:"alignment"`
	PoolSlots int    `yaml:"pool_slots"`
	SlotSize  int    `yaml:"slot_size"`
	DRMNode   string `yaml:"drm_node"`
}

type PollConfig struct {
	Spins      int           `yaml:"spins"`
	MaxPolls   int           `yaml:"max_polls"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

type QueueConfig struct {
	Capacity int  `yaml:"capacity"`
	Assert   bool `yaml:"assert"`
}

type PreviewConfig struct {
	Backend string `yaml:"backend"`
	Scale   int    `yaml:"scale"`
	Title   string `yaml:"title"`
}

// Config is the whole tool configuration. Sections are merged from every
// source in order, later sources overriding single fields.
type Config struct {
	Device    DeviceConfig  `yaml:"device"`
	Screen    ScreenConfig  `yaml:"screen"`
	Allocator AllocConfig   `yaml:"allocator"`
	Poll      PollConfig    `yaml:"poll"`
	Queue     QueueConfig   `yaml:"queue"`
	Log       LogConfig     `yaml:"log"`
	Preview   PreviewConfig `yaml:"preview"`
}

func DefaultConfig() Config {
	return Config{
		Device: DeviceConfig{
			Backend:    DEVICE_BACKEND_EMULATED,
			Revision:   "cle266-cx",
			VRAMSize:   DEFAULT_VRAM_SIZE,
			AutoRetire: 2,
		},
		Screen: ScreenConfig{Width: 640, Height: 480, Depth: 32},
		Allocator: AllocConfig{
			Strategy:  "linear",
			Alignment: 32,
			PoolSlots: 8,
			DRMNode:   "/dev/dri/card0",
		},
		Poll: PollConfig{
			Spins:      POLL_DEFAULT_SPINS,
			MaxPolls:   POLL_DEFAULT_MAX_POLLS,
			MaxBackoff: POLL_DEFAULT_MAX_BACKOFF * time.Microsecond,
		},
		Queue:   QueueConfig{Capacity: REGISTER_QUEUE_CAPACITY},
		Log:     LogConfig{Level: "info", Output: "stderr"},
		Preview: PreviewConfig{Backend: "ebiten", Scale: 1, Title: "overlay preview"},
	}
}

// ConfigSources collects repeated -config flags.
type ConfigSources []string

func (c *ConfigSources) String() string {
	return strings.Join(*c, " ")
}

func (c *ConfigSources) Set(value string) error {
	*c = append(*c, value)
	return nil
}

// LoadConfig starts from DefaultConfig and applies every source in order.
// A source starting with '{' is inline YAML, "a.b=value" sets one key,
// anything else is a file path.
func LoadConfig(sources []string) (Config, error) {
	cfg := DefaultConfig()
	for _, src := range sources {
		if src == "" {
			continue
		}
		data, err := configSource(src)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", src, err)
		}
	}
	return cfg, cfg.Validate()
}

func configSource(src string) ([]byte, error) {
	if src[0] == '{' {
		return []byte(src), nil
	}
	if data := parseConfString(src); data != nil {
		return data, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return []byte(os.ExpandEnv(string(data))), nil
}

// parseConfString turns `log.level=trace` into `{log: {level: trace}}`.
func parseConfString(s string) []byte {
	i := strings.IndexByte(s, '=')
	if i < 0 {
		return nil
	}
	items := strings.Split(s[:i], ".")
	if len(items) < 2 {
		return nil
	}
	var pre string
	suf := s[i+1:]
	for _, item := range items {
		pre += "{" + item + ": "
		suf += "}"
	}
	return []byte(pre + suf)
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Device.Backend {
	case DEVICE_BACKEND_EMULATED, DEVICE_BACKEND_MMIO:
	default:
		errs = append(errs, fmt.Errorf("device.backend %q: want %s or %s", c.Device.Backend, DEVICE_BACKEND_EMULATED, DEVICE_BACKEND_MMIO))
	}
	if c.Device.Backend == DEVICE_BACKEND_MMIO && c.Device.PCIAddress == "" {
		errs = append(errs, errors.New("device.pci_address is required for the mmio backend"))
	}
	if _, err := LookupRevision(c.Device.Revision); err != nil {
		errs = append(errs, fmt.Errorf("device.revision: %w", err))
	}
	if c.Device.VRAMSize <= 0 {
		errs = append(errs, fmt.Errorf("device.vram_size %d must be positive", c.Device.VRAMSize))
	}
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		errs = append(errs, fmt.Errorf("screen %dx%d must be positive", c.Screen.Width, c.Screen.Height))
	}
	switch c.Screen.Depth {
	case 8, 15, 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("screen.depth %d not supported", c.Screen.Depth))
	}
	if c.Screen.Width > 2048 || c.Screen.Height > 2048 {
		errs = append(errs, fmt.Errorf("screen %dx%d exceeds the 11-bit window range", c.Screen.Width, c.Screen.Height))
	}
	if _, err := ParseAllocStrategy(c.Allocator.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("allocator.strategy: %w", err))
	}
	if c.Allocator.Strategy == "pool" && c.Allocator.PoolSlots <= 0 {
		errs = append(errs, errors.New("allocator.pool_slots must be positive"))
	}
	if c.Poll.MaxPolls <= 0 {
		errs = append(errs, errors.New("poll.max_polls must be positive"))
	}
	if _, err := ParseVideoBackend(c.Preview.Backend); err != nil {
		errs = append(errs, fmt.Errorf("preview.backend: %w", err))
	}
	return errors.Join(errs...)
}

// FBSize is the size in bytes of the visible framebuffer.
func (c Config) FBSize() int {
	return c.Screen.Width * c.Screen.Height * fbBytesPerPixel(c.Screen.Depth)
}

// ScreenInfo converts the screen section.
func (c Config) ScreenInfo() ScreenInfo {
	return ScreenInfo{
		Width:          c.Screen.Width,
		Height:         c.Screen.Height,
		Depth:          c.Screen.Depth,
		PanelExpansion: c.Screen.PanelExpansion,
	}
}

// PollLimits converts the poll section.
func (c Config) PollLimits() PollLimits {
	return PollLimits{Spins: c.Poll.Spins, MaxPolls: c.Poll.MaxPolls, MaxBackoff: c.Poll.MaxBackoff}
}

// Revision resolves the revision profile, honouring extended_fifo on the
// first CLE266 stepping.
func (c Config) Revision() (RevisionProfile, error) {
	name := c.Device.Revision
	if name == "cle266-ax" && c.Device.ExtendedFIFO {
		name = "cle266-ax-ext"
	}
	return LookupRevision(name)
}
