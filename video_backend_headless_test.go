package main

import "testing"

func TestHeadlessOutput_SetDisplayConfig(t *testing.T) {
	out := NewHeadlessVideoOutput()
	cfg := DisplayConfig{
		Width:  640,
		Height: 480,
		Scale:  2,
		Title:  "overlay preview",
	}
	if err := out.SetDisplayConfig(cfg); err != nil {
		t.Fatalf("SetDisplayConfig returned error: %v", err)
	}
	got := out.GetDisplayConfig()
	if got.Scale != 2 || got.Title != "overlay preview" {
		t.Fatalf("expected Scale=2 and title kept; got Scale=%d, Title=%q", got.Scale, got.Title)
	}
}

func TestHeadlessOutput_KeepsLastFrame(t *testing.T) {
	out := NewHeadlessVideoOutput()
	if out.IsStarted() {
		t.Fatal("output started before Start")
	}
	if err := out.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	frame := []byte{1, 2, 3, 4}
	_ = out.UpdateFrame(frame)
	frame[0] = 9
	_ = out.UpdateFrame([]byte{5, 6, 7, 8})

	if got := out.GetFrameCount(); got != 2 {
		t.Fatalf("frame count %d, want 2", got)
	}
	last := out.LastFrame()
	if len(last) != 4 || last[0] != 5 {
		t.Fatalf("last frame %v", last)
	}
	last[0] = 0
	if out.LastFrame()[0] != 5 {
		t.Fatal("LastFrame returned shared storage")
	}

	out.SetStatus("V1 640x480")
	if out.Status() != "V1 640x480" {
		t.Fatalf("status %q", out.Status())
	}
	if out.GetRefreshRate() != COMPOSITOR_REFRESH_RATE {
		t.Fatalf("refresh rate %d", out.GetRefreshRate())
	}
	if err := out.Close(); err != nil || out.IsStarted() {
		t.Fatalf("Close: %v, started %v", err, out.IsStarted())
	}
}
