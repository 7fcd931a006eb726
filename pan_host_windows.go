//go:build windows

package main

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Start puts stdin in raw mode and begins reading in a goroutine.
func (h *PanHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		log.Error().Err(err).Msg("pan host: failed to set raw mode")
		close(h.done)
		return
	}
	h.oldTermState = oldState

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := os.Stdin.Read(buf)
			if n > 0 {
				h.route(buf[0])
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

// Stop terminates the reader and restores the terminal. A read blocked on
// stdin ends at the next key press.
func (h *PanHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
