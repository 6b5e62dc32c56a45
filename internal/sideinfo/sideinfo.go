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

// Package sideinfo is the MPEG1/2 Layer III side information: the fixed
// block of per-frame, per-granule bookkeeping emitted right after the
// frame header (spec §6.2).
package sideinfo

import (
	"github.com/aurelia-audio/mp3enc/internal/bits"
	"github.com/aurelia-audio/mp3enc/internal/consts"
)

// A SideInfo is MPEG1/2 Layer 3 Side Information. [2][2] means [gr][ch];
// MPEG-2/2.5 only ever populates gr==0.
type SideInfo struct {
	MainDataBegin int       // 9 bits (MPEG-1); 8 bits (MPEG-2/2.5)
	PrivateBits   int       // 5 bits in mono, 3 in stereo (MPEG-1); 1/2 (MPEG-2)
	Scfsi         [2][4]int // 1 bit, MPEG-1 only

	Part2_3Length    [2][2]int // 12 bits
	BigValues        [2][2]int // 9 bits
	GlobalGain       [2][2]int // 8 bits
	ScalefacCompress [2][2]int // 4 bits (MPEG-1); 9 bits (MPEG-2)
	WinSwitchFlag    [2][2]int // 1 bit

	BlockType      [2][2]int    // 2 bits
	MixedBlockFlag [2][2]int    // 1 bit
	TableSelect    [2][2][3]int // 5 bits
	SubblockGain   [2][2][3]int // 3 bits

	Region0Count [2][2]int // 4 bits
	Region1Count [2][2]int // 3 bits

	Preflag           [2][2]int // 1 bit, MPEG-1 only (MPEG-2 uses per-sfb scalefac_scale tables instead)
	ScalefacScale     [2][2]int // 1 bit
	Count1TableSelect [2][2]int // 1 bit
	Count1            [2][2]int // not transmitted; derived from the Huffman region split
}

// Write packs si into w in the same field order and bit widths a Layer
// III decoder's side-info reader consumes, for version v with nch
// channels and ngr granules (1 for MPEG-2/2.5, 2 for MPEG-1).
func (si *SideInfo) Write(w *bits.Writer, v consts.Version, nch, ngr int) {
	if v == consts.Version1 {
		w.WriteBits(uint32(si.MainDataBegin), 9)
	} else {
		w.WriteBits(uint32(si.MainDataBegin), 8)
	}
	if nch == 1 {
		if v == consts.Version1 {
			w.WriteBits(uint32(si.PrivateBits), 5)
		} else {
			w.WriteBits(uint32(si.PrivateBits), 1)
		}
	} else {
		if v == consts.Version1 {
			w.WriteBits(uint32(si.PrivateBits), 3)
		} else {
			w.WriteBits(uint32(si.PrivateBits), 2)
		}
	}
	if v == consts.Version1 {
		for ch := 0; ch < nch; ch++ {
			for band := 0; band < 4; band++ {
				w.WriteBits(uint32(si.Scfsi[ch][band]), 1)
			}
		}
	}
	for gr := 0; gr < ngr; gr++ {
		for ch := 0; ch < nch; ch++ {
			w.WriteBits(uint32(si.Part2_3Length[gr][ch]), 12)
			w.WriteBits(uint32(si.BigValues[gr][ch]), 9)
			w.WriteBits(uint32(si.GlobalGain[gr][ch]), 8)
			if v == consts.Version1 {
				w.WriteBits(uint32(si.ScalefacCompress[gr][ch]), 4)
			} else {
				w.WriteBits(uint32(si.ScalefacCompress[gr][ch]), 9)
			}
			w.WriteBits(uint32(si.WinSwitchFlag[gr][ch]), 1)
			if si.WinSwitchFlag[gr][ch] == 1 {
				w.WriteBits(uint32(si.BlockType[gr][ch]), 2)
				w.WriteBits(uint32(si.MixedBlockFlag[gr][ch]), 1)
				for region := 0; region < 2; region++ {
					w.WriteBits(uint32(si.TableSelect[gr][ch][region]), 5)
				}
				for win := 0; win < 3; win++ {
					w.WriteBits(uint32(si.SubblockGain[gr][ch][win]), 3)
				}
			} else {
				for region := 0; region < 3; region++ {
					w.WriteBits(uint32(si.TableSelect[gr][ch][region]), 5)
				}
				w.WriteBits(uint32(si.Region0Count[gr][ch]), 4)
				w.WriteBits(uint32(si.Region1Count[gr][ch]), 3)
			}
			if v == consts.Version1 {
				w.WriteBits(uint32(si.Preflag[gr][ch]), 1)
			}
			w.WriteBits(uint32(si.ScalefacScale[gr][ch]), 1)
			w.WriteBits(uint32(si.Count1TableSelect[gr][ch]), 1)
		}
	}
}

// Size returns the side-info size in bytes for (v, nch), matching
// consts.SideInfoSize.
func Size(v consts.Version, nch int) int {
	return consts.SideInfoSize(v, nch)
}
