// Copyright 2017 Hajime Hoshi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package maindata is the MPEG1/2 Layer III main data: scalefactors plus
// the Huffman-coded spectral lines, packed by internal/huffman and
// internal/bits.
package maindata

import (
	"github.com/aurelia-audio/mp3enc/internal/bits"
	"github.com/aurelia-audio/mp3enc/internal/huffman"
	"github.com/aurelia-audio/mp3enc/internal/sideinfo"
)

// mpeg1ScalefacSizes[scalefac_compress] = {slen1, slen2}, ISO Annex B.
var mpeg1ScalefacSizes = [16][2]int{
	{0, 0}, {0, 1}, {0, 2}, {0, 3}, {3, 0}, {1, 1}, {1, 2}, {1, 3},
	{2, 1}, {2, 2}, {2, 3}, {3, 1}, {3, 2}, {3, 3}, {4, 2}, {4, 3},
}

// MainData is the encoder-side main data for one frame: quantized
// spectral lines (L3Enc) and scalefactors, ready to be Huffman-packed.
type MainData struct {
	ScalefacL [2][2][22]int    // 0-4 bits
	ScalefacS [2][2][13][3]int // 0-4 bits

	// L3Enc holds the quantized (signed) integer coefficients produced by
	// the quantization loop (spec §4.F), one array per granule/channel,
	// already reordered for short blocks (frequency-line order within
	// the big_values/count1 split, window-major for short bands).
	L3Enc [2][2][576]int
}

// ScalefacSizes returns (slen1, slen2) for a scalefac_compress value.
func ScalefacSizes(scalefacCompress int) (int, int) {
	s := mpeg1ScalefacSizes[scalefacCompress&0xf]
	return s[0], s[1]
}

// SelectScalefacCompress returns the cheapest scalefac_compress index
// whose (slen1, slen2) widths can represent maxA (the largest
// scalefactor in the slen1-coded bands) and maxB (the largest in the
// slen2-coded bands), for the quantizer's granule finalization step
// (spec §4.F.3's scalefactor packing).
func SelectScalefacCompress(maxA, maxB int) int {
	best, bestCost := 0, -1
	for idx, sizes := range mpeg1ScalefacSizes {
		slen1, slen2 := sizes[0], sizes[1]
		if maxA >= (1<<uint(slen1)) || maxB >= (1<<uint(slen2)) {
			continue
		}
		cost := slen1 + slen2
		if bestCost < 0 || cost < bestCost {
			bestCost, best = cost, idx
		}
	}
	if bestCost < 0 {
		return 15 // widest table entry (slen1=4, slen2=3); callers must keep scalefactors in range
	}
	return best
}

// WriteScalefactors packs granule gr/channel ch's scalefactors per the
// same slen1/slen2 partitioning and scfsi cross-granule-copy rule the
// decoder's readMainL3 consumes (the copy itself is a no-op on the wire:
// when scfsi says granule 1 reuses granule 0's bands, the encoder simply
// omits writing those bits, which is what si.Scfsi already encodes).
func (md *MainData) WriteScalefactors(w *bits.Writer, si *sideinfo.SideInfo, gr, ch int) {
	slen1, slen2 := ScalefacSizes(si.ScalefacCompress[gr][ch])
	if si.WinSwitchFlag[gr][ch] == 1 && si.BlockType[gr][ch] == 2 {
		if si.MixedBlockFlag[gr][ch] != 0 {
			for sfb := 0; sfb < 8; sfb++ {
				w.WriteBits(uint32(md.ScalefacL[gr][ch][sfb]), slen1)
			}
			for sfb := 3; sfb < 12; sfb++ {
				nbits := slen2
				if sfb < 6 {
					nbits = slen1
				}
				for win := 0; win < 3; win++ {
					w.WriteBits(uint32(md.ScalefacS[gr][ch][sfb][win]), nbits)
				}
			}
		} else {
			for sfb := 0; sfb < 12; sfb++ {
				nbits := slen2
				if sfb < 6 {
					nbits = slen1
				}
				for win := 0; win < 3; win++ {
					w.WriteBits(uint32(md.ScalefacS[gr][ch][sfb][win]), nbits)
				}
			}
		}
		return
	}
	writeLongRange := func(lo, hi, nbits int) {
		if gr == 0 || si.Scfsi[ch][rangeIndex(lo)] == 0 {
			for sfb := lo; sfb < hi; sfb++ {
				w.WriteBits(uint32(md.ScalefacL[gr][ch][sfb]), nbits)
			}
		}
	}
	writeLongRange(0, 6, slen1)
	writeLongRange(6, 11, slen1)
	writeLongRange(11, 16, slen2)
	writeLongRange(16, 21, slen2)
}

func rangeIndex(lo int) int {
	switch {
	case lo < 6:
		return 0
	case lo < 11:
		return 1
	case lo < 16:
		return 2
	default:
		return 3
	}
}

// WriteHuffman Huffman-encodes the big_values and count1 regions for
// granule gr/channel ch, using the region boundaries and table selects
// already finalized in si. It returns the number of bits written; no
// caller or test in this module uses the value.
func (md *MainData) WriteHuffman(w *bits.Writer, si *sideinfo.SideInfo, gr, ch int, sfBandIndicesLong [23]int) int {
	start := w.Len()
	bigValues := si.BigValues[gr][ch] * 2
	r0 := si.Region0Count[gr][ch]
	r1 := si.Region1Count[gr][ch]

	region0End := minInt(bigValues, boundaryFor(sfBandIndicesLong, r0+1))
	region1End := minInt(bigValues, boundaryFor(sfBandIndicesLong, r0+r1+2))

	encodeRegion := func(lo, hi, tableIdx int) {
		t, ok := huffman.GetTable(si.TableSelect[gr][ch][tableIdx])
		if !ok {
			return
		}
		for i := lo; i+1 < hi; i += 2 {
			t.EncodePair(w, md.L3Enc[gr][ch][i], md.L3Enc[gr][ch][i+1])
		}
	}
	encodeRegion(0, region0End, 0)
	encodeRegion(region0End, region1End, 1)
	encodeRegion(region1End, bigValues, 2)

	for i := bigValues; i+3 < int(si.Count1[gr][ch]); i += 4 {
		huffman.EncodeQuad(w, si.Count1TableSelect[gr][ch],
			md.L3Enc[gr][ch][i], md.L3Enc[gr][ch][i+1], md.L3Enc[gr][ch][i+2], md.L3Enc[gr][ch][i+3])
	}
	return w.Len() - start
}

func boundaryFor(sfBandIndicesLong [23]int, regionBoundaryIdx int) int {
	if regionBoundaryIdx < 0 {
		return 0
	}
	if regionBoundaryIdx >= len(sfBandIndicesLong) {
		return sfBandIndicesLong[len(sfBandIndicesLong)-1]
	}
	return sfBandIndicesLong[regionBoundaryIdx]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
