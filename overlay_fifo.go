// overlay_fifo.go - Overlay FIFO Selection

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

import "fmt"

// FIFOConfig is the prefetch buffering of one pipeline. Too shallow tears the
// picture, too deep starves the other pipeline and the 2D/3D engines.
type FIFOConfig struct {
	Depth        int
	PreThreshold int
	Threshold    int
}

func (f FIFOConfig) String() string {
	return fmt.Sprintf("%d/%d/%d", f.Depth, f.PreThreshold, f.Threshold)
}

// SelectFIFO picks the FIFO entry for the current source width and path. It
// must be re-evaluated on every update because the width changes with the
// source rectangle.
func SelectFIFO(rev RevisionProfile, pipe Pipeline, format FourCC, srcW int, hqv bool) FIFOConfig {
	// Any source eight pixels wide or less underruns a deeper secondary FIFO.
	if pipe == PIPE_SECONDARY && srcW <= 8 {
		return fifoTinySecondary
	}
	if format.IsPlanar() {
		switch {
		case hqv:
			if pipe == PIPE_PRIMARY {
				return rev.PrimaryHQV()
			}
			return rev.SecondaryPlanar()
		case srcW <= 80:
			if pipe == PIPE_PRIMARY {
				return fifoNarrowPrimary
			}
			return fifoNarrowSecondary
		default:
			if pipe == PIPE_PRIMARY {
				return rev.PrimaryMinified()
			}
			return rev.SecondaryPlanar()
		}
	}

	if pipe == PIPE_PRIMARY {
		return rev.PrimaryPacked()
	}
	return rev.SecondaryPacked()
}

// HideFIFO is the small FIFO restored when a pipeline stops scanning out.
func HideFIFO() FIFOConfig {
	return fifoHide
}

// fifoRegisters encodes a FIFO entry into the control and pre-threshold
// register values. V1 fields are 7 bits wide, V3 fields 8 bits.
func fifoRegisters(pipe Pipeline, f FIFOConfig) (ctl, pre uint32) {
	mask := uint32(0x7F)
	if pipe == PIPE_SECONDARY {
		mask = 0xFF
	}
	depth := uint32(0)
	if f.Depth > 0 {
		depth = uint32(f.Depth-1) & mask
	}
	ctl = depth | (uint32(f.Threshold)&mask)<<8 | (uint32(f.PreThreshold)&mask)<<24
	pre = uint32(f.PreThreshold) & mask
	return ctl, pre
}

// fifoWrites returns the register writes for a FIFO entry.
func fifoWrites(pipe Pipeline, f FIFOConfig) []RegisterWrite {
	ctl, pre := fifoRegisters(pipe, f)
	return []RegisterWrite{
		{Addr: pipe.fifoReg(), Value: ctl},
		{Addr: pipe.prefifoReg(), Value: pre},
	}
}
