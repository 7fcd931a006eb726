// overlay_regqueue.go - Overlay Register Write Queue

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

/*
overlay_regqueue.go - Deferred Register Write Queue

All register stores for one overlay update are recorded here and written to
the device in a single pass once the previous update of the pipeline has
retired. Writes are never reordered or coalesced: the scaler latches some
registers as side effects of others, so insertion order is part of the
programming model.
*/

package main

import (
	"fmt"

	"github.com/rs/zerolog"
)

type RegisterQueue struct {
	writes   []RegisterWrite
	capacity int
	assert   bool
	warned   bool
	log      zerolog.Logger
}

// NewRegisterQueue creates a queue sized for one update. With assert set,
// exceeding capacity panics instead of growing.
func NewRegisterQueue(capacity int, assert bool, log zerolog.Logger) *RegisterQueue {
	if capacity <= 0 {
		capacity = REGISTER_QUEUE_CAPACITY
	}
	return &RegisterQueue{
		writes:   make([]RegisterWrite, 0, capacity),
		capacity: capacity,
		assert:   assert,
		log:      log,
	}
}

func (q *RegisterQueue) Append(addr, value uint32) {
	if len(q.writes) >= q.capacity {
		if q.assert {
			panic(fmt.Sprintf("register queue overflow: %d writes, capacity %d (addr 0x%03X)",
				len(q.writes)+1, q.capacity, addr))
		}
		if !q.warned {
			q.warned = true
			q.log.Warn().Int("capacity", q.capacity).Msg("[regqueue] capacity exceeded, growing")
		}
	}
	q.writes = append(q.writes, RegisterWrite{Addr: addr, Value: value})
}

// AppendAll records writes in slice order.
func (q *RegisterQueue) AppendAll(writes []RegisterWrite) {
	for _, w := range writes {
		q.Append(w.Addr, w.Value)
	}
}

func (q *RegisterQueue) Len() int {
	return len(q.writes)
}

// Writes returns a copy of the pending writes.
func (q *RegisterQueue) Writes() []RegisterWrite {
	out := make([]RegisterWrite, len(q.writes))
	copy(out, q.writes)
	return out
}

// Flush stores every pending write in insertion order and empties the queue.
func (q *RegisterQueue) Flush(dev RegisterIO) int {
	n := len(q.writes)
	traced := q.log.GetLevel() <= zerolog.TraceLevel
	for _, w := range q.writes {
		if traced {
			q.log.Trace().Msgf("[regqueue] 0x%03X <- 0x%08X", w.Addr, w.Value)
		}
		dev.Write32(w.Addr, w.Value)
	}
	q.writes = q.writes[:0]
	return n
}

func (q *RegisterQueue) Reset() {
	q.writes = q.writes[:0]
}
