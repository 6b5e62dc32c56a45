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

// Package frame assembles one complete Layer III bitstream frame: frame
// header, side information and main data (spec §4.G, §6.2). It is the
// encode-direction counterpart of a decoder's frame reader — the
// teacher's Frame bundled {header, sideInfo, mainData} and drove a
// per-granule, per-channel pipeline (requantize → reorder → stereo →
// antialias → hybrid synthesis → subband synthesis); this Frame bundles
// the same three structs and drives the inverse pipeline's last mile:
// scalefactor packing → Huffman packing → side-info packing → header.
package frame

import (
	"github.com/aurelia-audio/mp3enc/internal/bits"
	"github.com/aurelia-audio/mp3enc/internal/frameheader"
	"github.com/aurelia-audio/mp3enc/internal/maindata"
	"github.com/aurelia-audio/mp3enc/internal/sideinfo"
)

// Frame is one fully-populated, not-yet-serialized MP3 frame.
type Frame struct {
	Header   frameheader.FrameHeader
	SideInfo *sideinfo.SideInfo
	MainData *maindata.MainData

	NumChannels int
	Granules    int
}

// Bytes serializes the frame: header, optional CRC placeholder, side
// info, then main data (scalefactors + Huffman region), followed by
// zero-bit ancillary padding out to the frame's declared byte size.
//
// main_data_begin is whatever SideInfo carries, and the encoder always
// leaves it at 0: this frame's main data starts right after its own side
// info, and no bytes are borrowed from or left for another frame. The
// output is zero-padded, or cut, to exactly FrameSize().
func (f *Frame) Bytes(sfBandIndicesLong [23]int) []byte {
	hb := f.Header.Bytes()
	out := make([]byte, 0, f.Header.FrameSize())
	out = append(out, hb[:]...)
	if f.Header.ProtectionBit() == 0 {
		out = append(out, 0, 0) // CRC placeholder; computed by a collaborator per spec §6.2
	}

	siw := bits.NewWriter()
	f.SideInfo.Write(siw, f.Header.ID(), f.NumChannels, f.Granules)
	out = append(out, padTo(siw.Bytes(), sideinfo.Size(f.Header.ID(), f.NumChannels))...)

	mw := bits.NewWriter()
	for gr := 0; gr < f.Granules; gr++ {
		for ch := 0; ch < f.NumChannels; ch++ {
			f.MainData.WriteScalefactors(mw, f.SideInfo, gr, ch)
			f.MainData.WriteHuffman(mw, f.SideInfo, gr, ch, sfBandIndicesLong)
		}
	}
	mw.PadToByte()
	out = append(out, mw.Bytes()...)

	target := f.Header.FrameSize()
	for len(out) < target {
		out = append(out, 0)
	}
	if len(out) > target {
		out = out[:target]
	}
	return out
}

func padTo(b []byte, size int) []byte {
	if len(b) >= size {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

// MainDataBitLength returns the bit length the main data alone
// (scalefactors + Huffman data, without side info) would occupy if
// serialized right now, for reservoir accounting before the
// final frame byte size is known.
func (f *Frame) MainDataBitLength(sfBandIndicesLong [23]int) int {
	mw := bits.NewWriter()
	total := 0
	for gr := 0; gr < f.Granules; gr++ {
		for ch := 0; ch < f.NumChannels; ch++ {
			before := mw.Len()
			f.MainData.WriteScalefactors(mw, f.SideInfo, gr, ch)
			f.MainData.WriteHuffman(mw, f.SideInfo, gr, ch, sfBandIndicesLong)
			total += mw.Len() - before
		}
	}
	return total
}

// NumberOfChannels mirrors frameheader's accessor for callers that only
// have a Frame.
func (f *Frame) NumberOfChannels() int {
	return f.NumChannels
}
