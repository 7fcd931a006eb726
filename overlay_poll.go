package main

import (
	"context"
	"runtime"
	"time"
)

// PollResult is the outcome of a bounded hardware wait.
type PollResult int

const (
	PollReady PollResult = iota
	PollTimeout
)

func (r PollResult) String() string {
	if r == PollReady {
		return "ready"
	}
	return "timeout"
}

// PollLimits bounds a status wait: Spins tight reads, then reads separated by
// an exponentially growing sleep capped at MaxBackoff, MaxPolls reads total.
type PollLimits struct {
	Spins      int
	MaxPolls   int
	MaxBackoff time.Duration
}

func DefaultPollLimits() PollLimits {
	return PollLimits{
		Spins:      POLL_DEFAULT_SPINS,
		MaxPolls:   POLL_DEFAULT_MAX_POLLS,
		MaxBackoff: POLL_DEFAULT_MAX_BACKOFF * time.Microsecond,
	}
}

// PollUntil evaluates cond until it returns true, the read budget is spent or
// ctx is done. It returns the number of reads made.
func PollUntil(ctx context.Context, limits PollLimits, cond func() bool) (PollResult, int) {
	if limits.MaxPolls <= 0 {
		limits.MaxPolls = POLL_DEFAULT_MAX_POLLS
	}
	backoff := time.Microsecond
	for n := 1; n <= limits.MaxPolls; n++ {
		if cond() {
			return PollReady, n
		}
		if n < limits.Spins {
			continue
		}
		if err := ctx.Err(); err != nil {
			return PollTimeout, n
		}
		if limits.MaxBackoff <= 0 {
			runtime.Gosched()
			continue
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return PollTimeout, n
		case <-timer.C:
		}
		if backoff < limits.MaxBackoff {
			backoff *= 2
			if backoff > limits.MaxBackoff {
				backoff = limits.MaxBackoff
			}
		}
	}
	return PollTimeout, limits.MaxPolls
}

// waitClear polls reg until all mask bits read zero.
func waitClear(ctx context.Context, dev RegisterIO, limits PollLimits, op string, reg, mask uint32) error {
	res, n := PollUntil(ctx, limits, func() bool {
		return dev.Read32(reg)&mask == 0
	})
	if res == PollReady {
		return nil
	}
	return &HardwareTimeoutError{Operation: op, Register: reg, Mask: mask, Polls: n, Err: ctx.Err()}
}
