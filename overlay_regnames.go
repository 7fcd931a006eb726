package main

import (
	"fmt"
	"sort"
	"strings"
)

var registerNames = map[uint32]string{
	V_FLAGS:          "V_FLAGS",
	V_CAP_STATUS:     "V_CAP_STATUS",
	V_COLOR_KEY:      "V_COLOR_KEY",
	V_CHROMAKEY_HIGH: "V_CHROMAKEY_HIGH",
	V_CHROMAKEY_LOW:  "V_CHROMAKEY_LOW",
	V_FB_STARTADDR:   "V_FB_STARTADDR",
	V_COMPOSE_MODE:   "V_COMPOSE_MODE",

	V1_CONTROL:         "V1_CONTROL",
	V1_FETCH_COUNT:     "V1_FETCH_COUNT",
	V1_STARTADDR_1:     "V1_STARTADDR_1",
	V1_STRIDE:          "V1_STRIDE",
	V1_WIN_START_Y_X:   "V1_WIN_START_Y_X",
	V1_WIN_END_Y_X:     "V1_WIN_END_Y_X",
	V1_STARTADDR_2:     "V1_STARTADDR_2",
	V1_ZOOM_CONTROL:    "V1_ZOOM_CONTROL",
	V1_MINI_CONTROL:    "V1_MINI_CONTROL",
	V1_STARTADDR_0:     "V1_STARTADDR_0",
	V1_FIFO_CONTROL:    "V1_FIFO_CONTROL",
	V1_STARTADDR_CB0:   "V1_STARTADDR_CB0",
	V1_STARTADDR_CR0:   "V1_STARTADDR_CR0",
	V1_SOURCE_SIZE:     "V1_SOURCE_SIZE",
	V1_PREFIFO_CONTROL: "V1_PREFIFO_CONTROL",

	V3_STARTADDR_2:     "V3_STARTADDR_2",
	V3_CONTROL:         "V3_CONTROL",
	V3_STARTADDR_0:     "V3_STARTADDR_0",
	V3_STARTADDR_1:     "V3_STARTADDR_1",
	V3_STRIDE:          "V3_STRIDE",
	V3_WIN_START_Y_X:   "V3_WIN_START_Y_X",
	V3_WIN_END_Y_X:     "V3_WIN_END_Y_X",
	V3_FETCH_COUNT:     "V3_FETCH_COUNT",
	V3_ZOOM_CONTROL:    "V3_ZOOM_CONTROL",
	V3_MINI_CONTROL:    "V3_MINI_CONTROL",
	V3_COLOR_KEY:       "V3_COLOR_KEY",
	V3_FIFO_CONTROL:    "V3_FIFO_CONTROL",
	V3_PREFIFO_CONTROL: "V3_PREFIFO_CONTROL",
	V3_STARTADDR_CB0:   "V3_STARTADDR_CB0",
	V3_STARTADDR_CR0:   "V3_STARTADDR_CR0",
	V3_SOURCE_SIZE:     "V3_SOURCE_SIZE",

	HQV_CONTROL:         "HQV_CONTROL",
	HQV_SRC_STARTADDR_Y: "HQV_SRC_STARTADDR_Y",
	HQV_SRC_STARTADDR_U: "HQV_SRC_STARTADDR_U",
	HQV_SRC_STARTADDR_V: "HQV_SRC_STARTADDR_V",
	HQV_SRC_FETCH_LINE:  "HQV_SRC_FETCH_LINE",
	HQV_FILTER_CONTROL:  "HQV_FILTER_CONTROL",
	HQV_MINIFY_CONTROL:  "HQV_MINIFY_CONTROL",
	HQV_DST_STARTADDR0:  "HQV_DST_STARTADDR0",
	HQV_DST_STARTADDR1:  "HQV_DST_STARTADDR1",
	HQV_DST_STRIDE:      "HQV_DST_STRIDE",
	HQV_SRC_STRIDE:      "HQV_SRC_STRIDE",
	HQV_DST_STARTADDR2:  "HQV_DST_STARTADDR2",
}

func RegisterName(addr uint32) string {
	if n, ok := registerNames[addr]; ok {
		return n
	}
	return fmt.Sprintf("REG_%03X", addr)
}

func sortedRegisterAddrs() []uint32 {
	addrs := make([]uint32, 0, len(registerNames))
	for a := range registerNames {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// FormatRegisters renders writes one per line as "NAME (0xADDR) = 0xVALUE".
func FormatRegisters(writes []RegisterWrite) string {
	var b strings.Builder
	for _, w := range writes {
		fmt.Fprintf(&b, "%-20s (0x%03X) = 0x%08X\n", RegisterName(w.Addr), w.Addr, w.Value)
	}
	return b.String()
}
