package main

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfVideoMemory  = errors.New("out of video memory")
	ErrTooSmall          = errors.New("overlay too small to display")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrHardwareTimeout   = errors.New("hardware timeout")
	ErrNoSurface         = errors.New("no surface allocated")
	ErrInvalidRect       = errors.New("invalid rectangle")
	ErrPipelineBusy      = errors.New("pipeline busy")
	ErrStreamUnknown     = errors.New("unknown stream")
)

// HardwareTimeoutError reports a status bit that never cleared within the
// poll budget. The overlay state is left recoverable.
type HardwareTimeoutError struct {
	Operation string
	Register  uint32
	Mask      uint32
	Polls     int
	Err       error // context error, if the wait was cancelled
}

func (e *HardwareTimeoutError) Error() string {
	msg := fmt.Sprintf("%s: register 0x%03X mask 0x%08X still set after %d polls",
		e.Operation, e.Register, e.Mask, e.Polls)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *HardwareTimeoutError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrHardwareTimeout, e.Err}
	}
	return []error{ErrHardwareTimeout}
}
