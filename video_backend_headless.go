package main

import (
	"sync"
	"sync/atomic"
)

// HeadlessVideoOutput counts frames and keeps the last one. Used for CI,
// scripted runs and tests.
type HeadlessVideoOutput struct {
	mu          sync.Mutex
	started     bool
	config      DisplayConfig
	frameCount  uint64
	refreshRate int
	last        []byte
	status      string
}

func NewHeadlessVideoOutput() *HeadlessVideoOutput {
	return &HeadlessVideoOutput{refreshRate: COMPOSITOR_REFRESH_RATE}
}

func (h *HeadlessVideoOutput) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = true
	return nil
}

func (h *HeadlessVideoOutput) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = false
	return nil
}

func (h *HeadlessVideoOutput) Close() error {
	return h.Stop()
}

func (h *HeadlessVideoOutput) IsStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.config = config
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

func (h *HeadlessVideoOutput) UpdateFrame(buffer []byte) error {
	h.mu.Lock()
	h.last = append(h.last[:0], buffer...)
	h.mu.Unlock()
	atomic.AddUint64(&h.frameCount, 1)
	return nil
}

// LastFrame returns a copy of the most recent frame.
func (h *HeadlessVideoOutput) LastFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.last...)
}

func (h *HeadlessVideoOutput) SetStatus(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = text
}

func (h *HeadlessVideoOutput) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *HeadlessVideoOutput) WaitForVSync() error {
	return nil
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return atomic.LoadUint64(&h.frameCount)
}

func (h *HeadlessVideoOutput) GetRefreshRate() int {
	if h.refreshRate == 0 {
		return COMPOSITOR_REFRESH_RATE
	}
	return h.refreshRate
}
