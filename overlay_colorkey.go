package main

// colorKeyMask limits a framebuffer colour key to the screen depth.
func colorKeyMask(depth int) uint32 {
	switch depth {
	case 8:
		return 0xFF
	case 15:
		return 0x7FFF
	case 16:
		return 0xFFFF
	}
	return OVERLAY_COLOR_KEY_MASK_24BPP
}

// expandRGB555 spreads a 5/5/5 value into 8-bit channels (0x00RRGGBB).
func expandRGB555(v uint32) uint32 {
	return (v&0x7C00)<<9 | (v&0x03E0)<<6 | (v&0x001F)<<3
}

// expandRGB565 spreads a 5/6/5 value into 8-bit channels (0x00RRGGBB).
func expandRGB565(v uint32) uint32 {
	return (v&0xF800)<<8 | (v&0x07E0)<<5 | (v&0x001F)<<3
}

// chromaKeyValue converts a source-format chroma key into the 8-bit per
// channel value the chroma comparator works on.
func chromaKeyValue(format FourCC, v uint32) uint32 {
	switch format {
	case FOURCC_RV15:
		return expandRGB555(v)
	case FOURCC_RV16:
		return expandRGB565(v)
	}
	return v & CHROMA_KEY_MASK
}

// colorKeyWrites returns the key registers for a pipeline. composeBits are
// the V_COMPOSE_MODE select bits the keys require.
func colorKeyWrites(rev RevisionProfile, pipe Pipeline, format FourCC, depth int, key ColorKey) (writes []RegisterWrite, composeBits uint32) {
	if key.Enabled {
		reg := uint32(V_COLOR_KEY)
		if pipe == PIPE_SECONDARY && rev.TwoColorKeys() {
			reg = V3_COLOR_KEY
		}
		writes = append(writes, RegisterWrite{Addr: reg, Value: key.Key & colorKeyMask(depth)})
		if pipe == PIPE_SECONDARY {
			composeBits |= SELECT_VIDEO3_IF_COLOR_KEY
		} else {
			composeBits |= SELECT_VIDEO_IF_COLOR_KEY
		}
	}
	if key.ChromaEnabled {
		low := chromaKeyValue(format, key.ChromaLow)
		high := chromaKeyValue(format, key.ChromaHigh)
		if pipe == PIPE_SECONDARY {
			low |= V_CHROMAKEY_V3
			composeBits |= SELECT_VIDEO3_IF_CHROMA_KEY
		} else {
			composeBits |= SELECT_VIDEO_IF_CHROMA_KEY
		}
		writes = append(writes,
			RegisterWrite{Addr: V_CHROMAKEY_LOW, Value: low},
			RegisterWrite{Addr: V_CHROMAKEY_HIGH, Value: high},
		)
	}
	if !key.Enabled && !key.ChromaEnabled {
		if pipe == PIPE_SECONDARY {
			composeBits |= ALWAYS_SELECT_VIDEO3
		} else {
			composeBits |= ALWAYS_SELECT_VIDEO
		}
	}
	return writes, composeBits
}
