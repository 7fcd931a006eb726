// overlay_constants.go - Overlay Register Definitions

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
overlay_constants.go - Video Overlay Register Definitions

Register offsets and bit fields for the two overlay scaling pipelines (V1 and
V3), the shared compose-mode register and the auxiliary high-quality scaler
(HQV). Offsets are relative to the start of the memory-mapped register
aperture; the video engine block lives at 0x200-0x3FF.

Programming model:
1. Window, start address, stride, fetch, zoom and FIFO registers are written
   for a pipeline.
2. V_COMPOSE_MODE is written with V1_COMMAND_FIRE or V3_COMMAND_FIRE set. The
   hardware latches the shadowed values on the next vertical blank and clears
   the fire bit.
3. When the HQV is interposed, HQV_CONTROL is written with HQV_SW_FLIP. The
   HQV raises HQV_FLIP_STATUS until it has consumed the new source buffer.
*/

package main

// Register aperture
const (
	OVERLAY_MMIO_SIZE  = 0x1000
	OVERLAY_REG_BASE   = 0x200
	OVERLAY_REG_END    = 0x3FF
	OVERLAY_REG_COUNT  = (OVERLAY_REG_END - OVERLAY_REG_BASE + 1) / 4
	OVERLAY_FB_PITCH_A = 32 // pitch alignment in bytes

	OVERLAY_SURFACE_ALIGN = 0x1000 // first off-screen byte after the framebuffer
)

// Global video engine registers
const (
	V_FLAGS          = 0x200
	V_CAP_STATUS     = 0x204
	V_COLOR_KEY      = 0x220
	V_CHROMAKEY_HIGH = 0x224
	V_CHROMAKEY_LOW  = 0x228
	V_FB_STARTADDR   = 0x22C // scan-out base of the graphics framebuffer
	V_COMPOSE_MODE   = 0x298
)

// Primary pipeline (V1)
const (
	V1_CONTROL         = 0x230
	V1_FETCH_COUNT     = 0x234 // Y fetch [9:0], UV fetch [25:16]
	V1_STARTADDR_1     = 0x238
	V1_STRIDE          = 0x23C // Y/packed stride [15:0], UV stride [31:16]
	V1_WIN_START_Y_X   = 0x240
	V1_WIN_END_Y_X     = 0x244
	V1_STARTADDR_2     = 0x248
	V1_ZOOM_CONTROL    = 0x24C
	V1_MINI_CONTROL    = 0x250
	V1_STARTADDR_0     = 0x254
	V1_FIFO_CONTROL    = 0x258
	V1_STARTADDR_CB0   = 0x25C
	V1_STARTADDR_CR0   = 0x260
	V1_SOURCE_SIZE     = 0x26C // height [26:16], width [10:0]
	V1_PREFIFO_CONTROL = 0x270
)

// Secondary pipeline (V3)
const (
	V3_STARTADDR_2     = 0x29C
	V3_CONTROL         = 0x2A0
	V3_STARTADDR_0     = 0x2A4
	V3_STARTADDR_1     = 0x2A8
	V3_STRIDE          = 0x2AC
	V3_WIN_START_Y_X   = 0x2B0
	V3_WIN_END_Y_X     = 0x2B4
	V3_FETCH_COUNT     = 0x2B8
	V3_ZOOM_CONTROL    = 0x2BC
	V3_MINI_CONTROL    = 0x2C0
	V3_COLOR_KEY       = 0x2C4
	V3_FIFO_CONTROL    = 0x2C8
	V3_PREFIFO_CONTROL = 0x2CC
	V3_STARTADDR_CB0   = 0x2D0
	V3_STARTADDR_CR0   = 0x2D4
	V3_SOURCE_SIZE     = 0x2D8
)

// High-quality scaler (HQV)
const (
	HQV_CONTROL         = 0x3D0
	HQV_SRC_STARTADDR_Y = 0x3D4
	HQV_SRC_STARTADDR_U = 0x3D8
	HQV_SRC_STARTADDR_V = 0x3DC
	HQV_SRC_FETCH_LINE  = 0x3E0
	HQV_FILTER_CONTROL  = 0x3E4
	HQV_MINIFY_CONTROL  = 0x3E8
	HQV_DST_STARTADDR0  = 0x3EC
	HQV_DST_STARTADDR1  = 0x3F0
	HQV_DST_STRIDE      = 0x3F4
	HQV_SRC_STRIDE      = 0x3F8
	HQV_DST_STARTADDR2  = 0x3FC
)

// V_COMPOSE_MODE bits
const (
	SELECT_VIDEO_IF_COLOR_KEY    = 0x00000001 // V1 shows through colour key
	SELECT_VIDEO_IF_CHROMA_KEY   = 0x00000002
	ALWAYS_SELECT_VIDEO          = 0x00000004
	SELECT_VIDEO3_IF_COLOR_KEY   = 0x00000020 // V3 shows through colour key
	SELECT_VIDEO3_IF_CHROMA_KEY  = 0x00000040
	ALWAYS_SELECT_VIDEO3         = 0x00000080
	COMPOSE_V3_TOP               = 0x00100000 // V3 composited above V1
	V_COMMAND_LOAD_VBI           = 0x10000000
	V_COMMAND_LOAD               = 0x20000000
	V3_COMMAND_FIRE              = 0x40000000
	V1_COMMAND_FIRE              = 0x80000000
	COMPOSE_FIRE_MASK            = V1_COMMAND_FIRE | V3_COMMAND_FIRE
	COMPOSE_V1_SELECT_MASK       = SELECT_VIDEO_IF_COLOR_KEY | SELECT_VIDEO_IF_CHROMA_KEY | ALWAYS_SELECT_VIDEO
	COMPOSE_V3_SELECT_MASK       = SELECT_VIDEO3_IF_COLOR_KEY | SELECT_VIDEO3_IF_CHROMA_KEY | ALWAYS_SELECT_VIDEO3
	V_CHROMAKEY_V3               = 0x80000000 // in V_CHROMAKEY_LOW: key applies to V3
	CHROMA_KEY_MASK              = 0x00FFFFFF
	OVERLAY_COLOR_KEY_MASK_24BPP = 0x00FFFFFF
)

// V1_CONTROL / V3_CONTROL bits (identical layout)
const (
	VIDEO_ENABLE        = 0x00000001
	VIDEO_FORMAT_MASK   = 0x0000001C
	VIDEO_FMT_YUV422    = 0x00000000
	VIDEO_FMT_RGB32     = 0x00000004
	VIDEO_FMT_RGB15     = 0x00000008
	VIDEO_FMT_RGB16     = 0x0000000C
	VIDEO_FMT_YUV420    = 0x00000010
	VIDEO_SWAP_UV       = 0x00000020 // UYVY byte order
	VIDEO_FIFO_EXTENDED = 0x00200000
	VIDEO_BOB_ENABLE    = 0x00400000
	VIDEO_FIELD_BASE    = 0x00800000
	VIDEO_INTERLEAVE    = 0x01000000
	VIDEO_SWAP_HW_HQV   = 0x02000000 // pipeline reads HQV output, HQV flips buffers
	VIDEO_TRIPLE_BUFFER = 0x04000000
)

// V1_ZOOM_CONTROL / V3_ZOOM_CONTROL
const (
	X_ZOOM_ENABLE = 0x80000000
	X_ZOOM_SHIFT  = 16
	X_ZOOM_MASK   = 0x7FF // 11-bit horizontal factor
	Y_ZOOM_ENABLE = 0x00008000
	Y_ZOOM_MASK   = 0x3FF // 10-bit vertical factor
)

// V1_MINI_CONTROL / V3_MINI_CONTROL
const (
	Y_INTERPOLY      = 0x00000001
	X_INTERPOLY      = 0x00000002
	YCBCR_INTERPOLY  = 0x00000004
	MINI_INTERP_MASK = 0x00000007
	Y_DIV_SHIFT      = 16
	X_DIV_SHIFT      = 24
	Y_DIV_2          = 0x00010000
	Y_DIV_4          = 0x00030000
	Y_DIV_8          = 0x00050000
	Y_DIV_16         = 0x00070000
	X_DIV_2          = 0x01000000
	X_DIV_4          = 0x03000000
	X_DIV_8          = 0x05000000
	X_DIV_16         = 0x07000000
)

// HQV_CONTROL bits
const (
	HQV_FLIP_STATUS   = 0x00000001
	HQV_IDLE          = 0x00000008
	HQV_SW_FLIP       = 0x00000010
	HQV_FLIP_ODD      = 0x00000020
	HQV_TRIPLE_BUFFER = 0x00000400
	HQV_DEINTERLACE   = 0x00010000
	HQV_FIELD_2_FRAME = 0x00020000
	HQV_FRAME_2_FIELD = 0x00040000
	HQV_FIELD_UV      = 0x00080000
	HQV_ENABLE        = 0x08000000
	HQV_YUV422        = 0x80000000
	HQV_YUV420        = 0xC0000000
	HQV_SRC_FMT_MASK  = 0xC0000000
	HQV_UYVY_ORDER    = 0x00000100
)

// HQV_FILTER_CONTROL: horizontal taps in [15:0], vertical in [31:16]
const (
	HQV_H_TAP4        = 0x00000040
	HQV_H_TAP8        = 0x00000080
	HQV_V_TAP4        = 0x00400000
	HQV_V_TAP8        = 0x00800000
	HQV_H_FILTER_MASK = 0x0000FFFF
	HQV_V_FILTER_MASK = 0xFFFF0000
)

// HQV_MINIFY_CONTROL
const (
	HQV_H_MINIFY_ENABLE = 0x00000800
	HQV_H_MINIFY_DOWN   = 0x00001000
	HQV_V_MINIFY_ENABLE = 0x08000000
	HQV_V_MINIFY_DOWN   = 0x10000000
	HQV_MINIFY_RATIO    = 0x7FF
	HQV_V_MINIFY_SHIFT  = 16
)

// Fixed-point scales
const (
	ZOOM_H_ONE       = 0x800 // 11-bit horizontal unity
	ZOOM_V_ONE       = 0x400 // 10-bit vertical unity
	MINIFY_RATIO_ONE = 0x800
	MAX_MINIFY_LOG2  = 4 // /16
	FETCH_UNIT_BYTES = 16
)

// Pixel formats (FourCC, little-endian)
const (
	FOURCC_YUY2 FourCC = 0x32595559
	FOURCC_UYVY FourCC = 0x59565955
	FOURCC_YV12 FourCC = 0x32315659
	FOURCC_I420 FourCC = 0x30323449
	FOURCC_RV15 FourCC = 0x35315652
	FOURCC_RV16 FourCC = 0x36315652
	FOURCC_RV32 FourCC = 0x32335652
)

// Register queue
const (
	REGISTER_QUEUE_CAPACITY = 100
)

// FIFO reset used when an overlay is hidden
const (
	FIFO_HIDE_DEPTH        = 16
	FIFO_HIDE_PRETHRESHOLD = 12
	FIFO_HIDE_THRESHOLD    = 8
)

// Polling defaults
const (
	POLL_DEFAULT_SPINS       = 64
	POLL_DEFAULT_MAX_POLLS   = 50000
	POLL_DEFAULT_MAX_BACKOFF = 1000 // microseconds
)
