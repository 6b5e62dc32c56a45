package mp3enc

import (
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/frame"
	"github.com/aurelia-audio/mp3enc/internal/frameheader"
	"github.com/aurelia-audio/mp3enc/internal/maindata"
	"github.com/aurelia-audio/mp3enc/internal/quant"
	"github.com/aurelia-audio/mp3enc/internal/sideinfo"
)

// assembleFrame packs one frame's worth of already-quantized granules
// (spec §4.G) into a serialized Layer III frame, and records the
// non-fatal telemetry spec §7 allows (over-threshold bands,
// scalefac_scale forcing) into diag when the caller asked for it.
func (e *Encoder) assembleFrame(queue []granuleResult) []byte {
	nch := e.params.NumChannels
	granules := consts.GranulesPerFrame(e.params.Version)

	si := &sideinfo.SideInfo{}
	md := &maindata.MainData{}

	diagInfo := e.cfg.Diagnostics

	for gr := 0; gr < granules && gr < len(queue); gr++ {
		g := queue[gr]
		for ch := 0; ch < nch; ch++ {
			r := g.res[ch]
			si.Part2_3Length[gr][ch] = r.Part2_3Length
			si.BigValues[gr][ch] = r.BigValues
			si.GlobalGain[gr][ch] = r.GlobalGain
			si.WinSwitchFlag[gr][ch] = 0
			if g.blockType[ch] != consts.BlockLong {
				si.WinSwitchFlag[gr][ch] = 1
				si.BlockType[gr][ch] = int(g.blockType[ch])
			}
			si.TableSelect[gr][ch] = r.TableSelect
			si.SubblockGain[gr][ch] = r.SubblockGain
			si.Region0Count[gr][ch] = r.Region0Count
			si.Region1Count[gr][ch] = r.Region1Count
			si.Preflag[gr][ch] = r.Preflag
			si.ScalefacScale[gr][ch] = r.ScalefacScale
			si.Count1TableSelect[gr][ch] = r.Count1TableSelect
			si.Count1[gr][ch] = r.BigValues*2 + r.Count1*4

			if g.blockType[ch] == consts.BlockShort {
				si.ScalefacCompress[gr][ch] = scalefacCompressShort(r)
				md.ScalefacS[gr][ch] = r.ScalefacS
			} else {
				si.ScalefacCompress[gr][ch] = scalefacCompressLong(r)
				md.ScalefacL[gr][ch] = r.ScalefacL
			}
			md.L3Enc[gr][ch] = r.L3Enc

			if diagInfo != nil && gr < 2 && ch < 2 {
				diagInfo.OverThresholdBands[gr][ch] = r.OverCount
				diagInfo.ScalefacScaleForced[gr][ch] = r.ScalefacScale != 0
			}
		}
	}

	header := e.buildHeader(granules, nch)
	f := &frame.Frame{
		Header:      header,
		SideInfo:    si,
		MainData:    md,
		NumChannels: nch,
		Granules:    granules,
	}
	return f.Bytes(e.sfBandLong)
}

func scalefacCompressLong(r quant.Result) int {
	maxA, maxB := 0, 0
	for sfb := 0; sfb < 11; sfb++ {
		if r.ScalefacL[sfb] > maxA {
			maxA = r.ScalefacL[sfb]
		}
	}
	for sfb := 11; sfb < consts.SBMaxLong; sfb++ {
		if r.ScalefacL[sfb] > maxB {
			maxB = r.ScalefacL[sfb]
		}
	}
	return maindata.SelectScalefacCompress(maxA, maxB)
}

func scalefacCompressShort(r quant.Result) int {
	maxA, maxB := 0, 0
	for sfb := 0; sfb < 6; sfb++ {
		for w := 0; w < 3; w++ {
			if r.ScalefacS[sfb][w] > maxA {
				maxA = r.ScalefacS[sfb][w]
			}
		}
	}
	for sfb := 6; sfb < consts.SBMaxShort; sfb++ {
		for w := 0; w < 3; w++ {
			if r.ScalefacS[sfb][w] > maxB {
				maxB = r.ScalefacS[sfb][w]
			}
		}
	}
	return maindata.SelectScalefacCompress(maxA, maxB)
}

// buildHeader assembles the 32-bit frame header at the session's
// resolved bitrate. Every frame, in every VBR mode, carries that same
// bitrate index: no per-frame index is chosen from the bits actually
// spent, and ratectl.SelectBitrateForUsedBits is not called here.
func (e *Encoder) buildHeader(granules, nch int) frameheader.FrameHeader {
	protection := 1
	if e.params.ErrorProtection {
		protection = 0
	}
	mode := e.params.FrameMode
	modeExt := 0
	if mode == consts.ModeJointStereo {
		modeExt = 2 // MS stereo, no intensity stereo
	}
	padding := 0
	if e.rc.SlotLag() {
		padding = 1
	}
	return frameheader.Encode(frameheader.Fields{
		ID:              e.params.Version,
		ProtectionBit:   protection,
		BitrateIndex:    bitrateIndexFor(e.params.Version, e.params.BitrateKbps),
		SampleRateIndex: e.params.SampleRate,
		PaddingBit:      padding,
		Mode:            mode,
		ModeExtension:   modeExt,
		Original:        1,
	})
}

// bitrateIndexFor finds the bitrate table row matching kbps for Layer
// III at the given version, defaulting to the closest rate below it when
// the rate controller proposes an in-between VBR value.
func bitrateIndexFor(v consts.Version, kbps int) int {
	var table [15]int
	if v == consts.Version1 {
		table = consts.BitrateTableKbpsV1[consts.Layer3]
	} else {
		table = consts.BitrateTableKbpsV2Layer3
	}
	best := 1
	for idx, k := range table {
		if k == 0 {
			continue
		}
		if k <= kbps {
			best = idx
		}
	}
	return best
}
