package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorKeyMask_ByDepth(t *testing.T) {
	assert.Equal(t, uint32(0xFF), colorKeyMask(8))
	assert.Equal(t, uint32(0x7FFF), colorKeyMask(15))
	assert.Equal(t, uint32(0xFFFF), colorKeyMask(16))
	assert.Equal(t, uint32(0xFFFFFF), colorKeyMask(24))
	assert.Equal(t, uint32(0xFFFFFF), colorKeyMask(32))
}

func TestChromaKeyValue_ExpandsRGB(t *testing.T) {
	assert.Equal(t, uint32(0xF80000), chromaKeyValue(FOURCC_RV16, 0xF800))
	assert.Equal(t, uint32(0x00FC00), chromaKeyValue(FOURCC_RV16, 0x07E0))
	assert.Equal(t, uint32(0xF80000), chromaKeyValue(FOURCC_RV15, 0x7C00))
	assert.Equal(t, uint32(0x0000F8), chromaKeyValue(FOURCC_RV15, 0x001F))
	assert.Equal(t, uint32(0x123456), chromaKeyValue(FOURCC_YUY2, 0xFF123456))
}

func TestColorKeyWrites_NoKeysAlwaysSelects(t *testing.T) {
	rev := mustRevision(t, "cle266-cx")
	w, bits := colorKeyWrites(rev, PIPE_PRIMARY, FOURCC_YUY2, 32, ColorKey{})
	assert.Empty(t, w)
	assert.Equal(t, uint32(ALWAYS_SELECT_VIDEO), bits)

	w, bits = colorKeyWrites(rev, PIPE_SECONDARY, FOURCC_YUY2, 32, ColorKey{})
	assert.Empty(t, w)
	assert.Equal(t, uint32(ALWAYS_SELECT_VIDEO3), bits)
}

func TestColorKeyWrites_MaskedToDepth(t *testing.T) {
	rev := mustRevision(t, "cle266-cx")
	w, bits := colorKeyWrites(rev, PIPE_PRIMARY, FOURCC_YUY2, 16, ColorKey{Enabled: true, Key: 0xABCDEF})
	assert.Equal(t, []RegisterWrite{{V_COLOR_KEY, 0xCDEF}}, w)
	assert.Equal(t, uint32(SELECT_VIDEO_IF_COLOR_KEY), bits)
}

func TestColorKeyWrites_SecondaryKeyRegister(t *testing.T) {
	key := ColorKey{Enabled: true, Key: 0x00FF00}

	// Single-key revisions share V_COLOR_KEY between the pipelines.
	w, bits := colorKeyWrites(mustRevision(t, "cle266-cx"), PIPE_SECONDARY, FOURCC_YUY2, 32, key)
	assert.Equal(t, uint32(V_COLOR_KEY), w[0].Addr)
	assert.Equal(t, uint32(SELECT_VIDEO3_IF_COLOR_KEY), bits)

	w, _ = colorKeyWrites(mustRevision(t, "k8m800"), PIPE_SECONDARY, FOURCC_YUY2, 32, key)
	assert.Equal(t, uint32(V3_COLOR_KEY), w[0].Addr)

	w, _ = colorKeyWrites(mustRevision(t, "k8m800"), PIPE_PRIMARY, FOURCC_YUY2, 32, key)
	assert.Equal(t, uint32(V_COLOR_KEY), w[0].Addr)
}

func TestColorKeyWrites_ChromaOnSecondaryTagsLow(t *testing.T) {
	rev := mustRevision(t, "k8m800")
	key := ColorKey{ChromaEnabled: true, ChromaLow: 0x001F, ChromaHigh: 0x003F}
	w, bits := colorKeyWrites(rev, PIPE_SECONDARY, FOURCC_RV16, 16, key)
	assert.Equal(t, []RegisterWrite{
		{V_CHROMAKEY_LOW, expandRGB565(0x001F) | V_CHROMAKEY_V3},
		{V_CHROMAKEY_HIGH, expandRGB565(0x003F)},
	}, w)
	assert.Equal(t, uint32(SELECT_VIDEO3_IF_CHROMA_KEY), bits)
}
