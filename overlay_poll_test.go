package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollUntil_ReadyCountsReads(t *testing.T) {
	n := 0
	res, polls := PollUntil(context.Background(), fastPoll, func() bool {
		n++
		return n == 3
	})
	if res != PollReady || polls != 3 {
		t.Fatalf("got %v after %d polls, want ready after 3", res, polls)
	}
}

func TestPollUntil_BudgetExhausted(t *testing.T) {
	calls := 0
	res, polls := PollUntil(context.Background(), fastPoll, func() bool {
		calls++
		return false
	})
	if res != PollTimeout {
		t.Fatalf("got %v, want timeout", res)
	}
	if polls != fastPoll.MaxPolls || calls != fastPoll.MaxPolls {
		t.Fatalf("polls %d calls %d, want %d", polls, calls, fastPoll.MaxPolls)
	}
}

func TestPollUntil_BackoffIsBounded(t *testing.T) {
	limits := PollLimits{Spins: 2, MaxPolls: 12, MaxBackoff: 50 * time.Microsecond}
	start := time.Now()
	res, _ := PollUntil(context.Background(), limits, func() bool { return false })
	if res != PollTimeout {
		t.Fatalf("got %v, want timeout", res)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("bounded poll took %v", elapsed)
	}
}

func TestPollUntil_ContextCancelStopsAfterSpins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limits := PollLimits{Spins: 4, MaxPolls: 1000, MaxBackoff: time.Millisecond}
	res, polls := PollUntil(ctx, limits, func() bool { return false })
	if res != PollTimeout || polls != 4 {
		t.Fatalf("got %v after %d polls, want timeout after the 4 spins", res, polls)
	}
}

func TestWaitClear_TimeoutError(t *testing.T) {
	dev := newFakeDevice(0)
	dev.regs[V_COMPOSE_MODE] = V1_COMMAND_FIRE
	dev.setStall(true)

	err := waitClear(context.Background(), dev, fastPoll, "wait fire", V_COMPOSE_MODE, V1_COMMAND_FIRE)
	if !errors.Is(err, ErrHardwareTimeout) {
		t.Fatalf("got %v, want ErrHardwareTimeout", err)
	}
	var hte *HardwareTimeoutError
	if !errors.As(err, &hte) {
		t.Fatalf("got %T, want *HardwareTimeoutError", err)
	}
	if hte.Register != V_COMPOSE_MODE || hte.Mask != V1_COMMAND_FIRE || hte.Polls != fastPoll.MaxPolls {
		t.Fatalf("error fields %+v", hte)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = waitClear(ctx, dev, fastPoll, "wait fire", V_COMPOSE_MODE, V1_COMMAND_FIRE)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrHardwareTimeout) {
		t.Fatalf("cancelled wait: %v", err)
	}
}

func TestWaitClear_ClearsOnRetire(t *testing.T) {
	dev := newFakeDevice(0)
	dev.retireAfter = 5
	dev.regs[HQV_CONTROL] = HQV_FLIP_STATUS | HQV_ENABLE
	if err := waitClear(context.Background(), dev, fastPoll, "hqv flip", HQV_CONTROL, HQV_FLIP_STATUS); err != nil {
		t.Fatalf("waitClear: %v", err)
	}
	if dev.reg(HQV_CONTROL)&HQV_ENABLE == 0 {
		t.Fatal("wait disturbed other bits")
	}
}
