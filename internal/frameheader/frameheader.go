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

// Package frameheader encodes and decodes the 32-bit MPEG Layer III frame
// header (spec §6.2). The accessor set mirrors a decoder's, since the
// framer needs to read back what it just wrote when it assembles
// Diagnostics and when tests assert frame-sync invariants.
package frameheader

import (
	"github.com/aurelia-audio/mp3enc/internal/consts"
)

// A FrameHeader is a MPEG1/2/2.5 Layer III frame header.
type FrameHeader uint32

const syncMask = 0xffe00000
const syncBits = 0xffe00000

func (m FrameHeader) ID() consts.Version {
	return consts.Version((m & 0x00180000) >> 19)
}

func (m FrameHeader) Layer() consts.Layer {
	return consts.Layer((m & 0x00060000) >> 17)
}

func (m FrameHeader) ProtectionBit() int {
	return int(m&0x00010000) >> 16
}

func (m FrameHeader) BitrateIndex() int {
	return int(m&0x0000f000) >> 12
}

func (m FrameHeader) SamplingFrequency() consts.SamplingFrequency {
	return consts.SamplingFrequency(int(m&0x00000c00) >> 10)
}

func (m FrameHeader) PaddingBit() int {
	return int(m&0x00000200) >> 9
}

func (m FrameHeader) PrivateBit() int {
	return int(m&0x00000100) >> 8
}

func (m FrameHeader) Mode() consts.Mode {
	return consts.Mode((m & 0x000000c0) >> 6)
}

func (m FrameHeader) ModeExtension() int {
	return int(m&0x00000030) >> 4
}

func (m FrameHeader) Copyright() int {
	return int(m&0x00000008) >> 3
}

func (m FrameHeader) OriginalOrCopy() int {
	return int(m&0x00000004) >> 2
}

func (m FrameHeader) Emphasis() int {
	return int(m&0x00000003) >> 0
}

// IsValid reports whether the header has sync and no reserved fields.
func (m FrameHeader) IsValid() bool {
	if (uint32(m) & syncMask) != syncBits {
		return false
	}
	if m.ID() == consts.VersionReserved {
		return false
	}
	if m.BitrateIndex() == 15 {
		return false
	}
	if m.SamplingFrequency() == 3 {
		return false
	}
	if m.Layer() == consts.LayerReserved {
		return false
	}
	if m.Emphasis() == 2 {
		return false
	}
	return true
}

func (h FrameHeader) SamplingFrequencyValue() int {
	return consts.SampleRateHz(h.ID(), h.SamplingFrequency())
}

func (h FrameHeader) BitrateBps() int {
	return consts.BitrateKbps(h.ID(), h.Layer(), h.BitrateIndex()) * 1000
}

// FrameSize returns the total frame length in bytes, including the
// 4-byte header, per the classic "slot count" formula.
func (h FrameHeader) FrameSize() int {
	sr := h.SamplingFrequencyValue()
	if sr == 0 {
		return 0
	}
	slotDiv := 144
	if h.ID() != consts.Version1 {
		slotDiv = 72
	}
	return (slotDiv*h.BitrateBps())/sr + h.PaddingBit()
}

func (h FrameHeader) NumberOfChannels() int {
	return h.Mode().NumChannels()
}

func (h FrameHeader) Granules() int {
	return consts.GranulesPerFrame(h.ID())
}

// Fields groups every header bit field for the Encode constructor, so
// call sites name fields instead of assembling a raw bitmask.
type Fields struct {
	ID              consts.Version
	ProtectionBit   int
	BitrateIndex    int
	SampleRateIndex consts.SamplingFrequency
	PaddingBit      int
	PrivateBit      int
	Mode            consts.Mode
	ModeExtension   int
	Copyright       int
	Original        int
	Emphasis        int
}

// Encode packs Fields into a 32-bit header with sync and layer=Layer3
// fixed, as this module only ever emits Layer III streams.
func Encode(f Fields) FrameHeader {
	h := uint32(syncBits)
	h |= uint32(f.ID) << 19
	h |= uint32(consts.Layer3) << 17
	h |= uint32(f.ProtectionBit) << 16
	h |= uint32(f.BitrateIndex) << 12
	h |= uint32(f.SampleRateIndex) << 10
	h |= uint32(f.PaddingBit) << 9
	h |= uint32(f.PrivateBit) << 8
	h |= uint32(f.Mode) << 6
	h |= uint32(f.ModeExtension) << 4
	h |= uint32(f.Copyright) << 3
	h |= uint32(f.Original) << 2
	h |= uint32(f.Emphasis)
	return FrameHeader(h)
}

// Bytes returns the 4 big-endian bytes of the header as written to the
// bitstream.
func (h FrameHeader) Bytes() [4]byte {
	v := uint32(h)
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
