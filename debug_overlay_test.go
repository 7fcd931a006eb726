//go:build !headless

package main

import "testing"

func TestDebugWindow(t *testing.T) {
	cases := []struct {
		total, rows, scroll int
		start, end          int
	}{
		{0, 10, 0, 0, 0},
		{5, 10, 0, 0, 5},
		{5, 10, 3, 0, 5},
		{40, 10, 0, 0, 10},
		{40, 10, 25, 25, 35},
		{40, 10, 99, 30, 40},
		{40, 10, -4, 0, 10},
		{40, 0, 0, 0, 0},
	}
	for _, c := range cases {
		start, end := debugWindow(c.total, c.rows, c.scroll)
		if start != c.start || end != c.end {
			t.Fatalf("debugWindow(%d, %d, %d) = %d, %d; want %d, %d",
				c.total, c.rows, c.scroll, start, end, c.start, c.end)
		}
	}
}

func TestDebugOverlay_RefreshSplitsDump(t *testing.T) {
	calls := 0
	o := NewDebugOverlay(func() string {
		calls++
		return FormatRegisters([]RegisterWrite{{Addr: V1_CONTROL, Value: 1}, {Addr: V3_CONTROL}})
	})
	if o.Visible() {
		t.Fatal("panel visible before Tab")
	}
	o.refresh()
	if calls != 1 || len(o.lines) != 2 {
		t.Fatalf("calls %d lines %q", calls, o.lines)
	}
	if splitDumpLines("") != nil || NewDebugOverlay(nil).lines != nil {
		t.Fatal("empty dump produced lines")
	}
}
