package main

// fetchPlan is the per-line fetch and stride programming of a pipeline.
type fetchPlan struct {
	FetchY   int // fetch units for packed data or the Y plane
	FetchUV  int // fetch units per chroma plane (planar only)
	StrideY  int
	StrideUV int
}

// packedFetch returns the line fetch for packed data: the wider of source
// and destination in bytes, aligned to the revision granule, in 16-byte
// units plus one unit of headroom against under-fetch. With a divider the
// count is rounded up to the divider alignment.
func packedFetch(rev RevisionProfile, srcW, dstW int, shift uint, alignment int) int {
	w := srcW
	if dstW > w {
		w = dstW
	}
	bytes := alignUp(w<<shift, rev.FetchGranule())
	fetch := bytes/FETCH_UNIT_BYTES + 1
	if alignment > 0 {
		fetch = (fetch + alignment) &^ alignment
	}
	if fetch < 4 {
		fetch = 4
	}
	return fetch
}

// planarFetch computes luma and chroma fetch independently. Chroma planes are
// half width and half pitch.
func planarFetch(rev RevisionProfile, srcW, pitch, alignment int) fetchPlan {
	granule := rev.FetchGranule()
	if granule < 32 {
		granule = 32
	}
	fy := alignUp(srcW, granule)/FETCH_UNIT_BYTES + 1
	fuv := alignUp((srcW+1)/2, granule)/FETCH_UNIT_BYTES + 1
	if alignment > 0 {
		fy = (fy + alignment) &^ alignment
		fuv = (fuv + alignment) &^ alignment
	}
	if fy < 4 {
		fy = 4
	}
	if fuv < 2 {
		fuv = 2
	}
	return fetchPlan{FetchY: fy, FetchUV: fuv, StrideY: pitch, StrideUV: pitch / 2}
}

// hqvFetchLine encodes HQV_SRC_FETCH_LINE: source line length minus one in
// bytes or in 8-byte units depending on the revision, and source height minus
// one.
func hqvFetchLine(rev RevisionProfile, srcW, srcH int, shift uint) uint32 {
	bytes := srcW << shift
	var units int
	if rev.HQVFetchByteUnit() {
		units = bytes - 1
	} else {
		units = (bytes+7)>>3 - 1
	}
	if units < 0 {
		units = 0
	}
	h := srcH - 1
	if h < 0 {
		h = 0
	}
	return uint32(units&0x7FF)<<16 | uint32(h&0x7FF)
}

func (f fetchPlan) fetchRegister() uint32 {
	return uint32(f.FetchY&0x3FF) | uint32(f.FetchUV&0x3FF)<<16
}

func (f fetchPlan) strideRegister() uint32 {
	return uint32(f.StrideY&0xFFFF) | uint32(f.StrideUV&0xFFFF)<<16
}
