package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectFIFO_Table(t *testing.T) {
	tests := []struct {
		name   string
		rev    string
		pipe   Pipeline
		format FourCC
		srcW   int
		hqv    bool
		want   FIFOConfig
	}{
		{"cx primary packed", "cle266-cx", PIPE_PRIMARY, FOURCC_YUY2, 720, false, FIFOConfig{64, 56, 56}},
		{"ax primary packed", "cle266-ax", PIPE_PRIMARY, FOURCC_YUY2, 720, false, FIFOConfig{32, 29, 16}},
		{"ax ext primary packed", "cle266-ax-ext", PIPE_PRIMARY, FOURCC_YUY2, 720, false, FIFOConfig{48, 40, 40}},
		{"ax primary planar", "cle266-ax", PIPE_PRIMARY, FOURCC_YV12, 720, false, FIFOConfig{16, 12, 8}},
		{"ax primary planar hqv", "cle266-ax", PIPE_PRIMARY, FOURCC_YV12, 720, true, FIFOConfig{32, 29, 16}},
		{"k8m800 secondary packed", "k8m800", PIPE_SECONDARY, FOURCC_UYVY, 720, false, FIFOConfig{100, 89, 89}},
		{"pm800 secondary planar", "pm800", PIPE_SECONDARY, FOURCC_I420, 720, false, FIFOConfig{64, 61, 61}},
		{"p4m890 secondary packed", "p4m890", PIPE_SECONDARY, FOURCC_RV32, 720, false, FIFOConfig{225, 200, 250}},
		{"narrow planar primary", "k8m800", PIPE_PRIMARY, FOURCC_YV12, 80, false, FIFOConfig{16, 0, 0}},
		{"narrow planar secondary", "k8m800", PIPE_SECONDARY, FOURCC_YV12, 64, false, FIFOConfig{16, 16, 0}},
		{"tiny secondary", "k8m800", PIPE_SECONDARY, FOURCC_YUY2, 8, false, FIFOConfig{1, 0, 0}},
		{"tiny primary unaffected", "k8m800", PIPE_PRIMARY, FOURCC_YUY2, 8, false, FIFOConfig{64, 56, 56}},
		{"secondary nine wide", "k8m800", PIPE_SECONDARY, FOURCC_YUY2, 9, false, FIFOConfig{100, 89, 89}},
		{"tiny planar secondary", "k8m800", PIPE_SECONDARY, FOURCC_YV12, 8, false, FIFOConfig{1, 0, 0}},
		{"tiny planar secondary hqv", "pm800", PIPE_SECONDARY, FOURCC_I420, 8, true, FIFOConfig{1, 0, 0}},
		{"tiny planar primary", "k8m800", PIPE_PRIMARY, FOURCC_YV12, 8, false, FIFOConfig{16, 0, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rev := mustRevision(t, tc.rev)
			got := SelectFIFO(rev, tc.pipe, tc.format, tc.srcW, tc.hqv)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFIFORegisters_Encoding(t *testing.T) {
	ctl, pre := fifoRegisters(PIPE_PRIMARY, FIFOConfig{64, 56, 56})
	assert.Equal(t, uint32(63|56<<8|56<<24), ctl)
	assert.Equal(t, uint32(56), pre)

	// V3 fields are 8 bits wide.
	ctl, pre = fifoRegisters(PIPE_SECONDARY, FIFOConfig{225, 200, 250})
	assert.Equal(t, uint32(224|250<<8|200<<24), ctl)
	assert.Equal(t, uint32(200), pre)
}

func TestHideFIFO_Writes(t *testing.T) {
	assert.Equal(t, FIFOConfig{16, 12, 8}, HideFIFO())
	w := fifoWrites(PIPE_SECONDARY, HideFIFO())
	if assert.Len(t, w, 2) {
		assert.Equal(t, uint32(V3_FIFO_CONTROL), w[0].Addr)
		assert.Equal(t, uint32(V3_PREFIFO_CONTROL), w[1].Addr)
		assert.Equal(t, uint32(15|8<<8|12<<24), w[0].Value)
	}
}
